package config

// EnvPrefix scopes every environment variable this service reads.
const EnvPrefix = "packcredits"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "PACKCREDITS_DB_DSN"
	EnvDBHost = "PACKCREDITS_DB_HOST"
	EnvDBUser = "PACKCREDITS_DB_USER"
	EnvDBName = "PACKCREDITS_DB_NAME"
)
