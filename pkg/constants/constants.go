package constants

const (
	AppName      = "notifyhub"
	ConfigName   = "config"
	ConfigFormat = "yaml"
	EnvPrefix    = "NOTIFYHUB"
)
