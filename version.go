// Package ovpnbot hands out OpenVPN client profiles over Telegram by
// driving an external VPN management script.
package ovpnbot

// Version is the release version, overridden at link time.
var Version = "v0.1.0-dev"
