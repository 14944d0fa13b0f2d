package giffiscript

// Version and BuildDate are overridden at link time:
//
//	go build -ldflags "-X github.com/miklaskarjalainen/GiffiScript.Version=v1.2.3"
var (
	Version   = "0.1.0-dev"
	BuildDate = "unknown"
)
