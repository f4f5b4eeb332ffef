package nutri

// Version is the release of the bot. Overridden at build time with
// -ldflags "-X github.com/aretw0/nutri.Version=...".
var Version = "0.1.0-dev"
