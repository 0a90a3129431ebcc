package config

// EnvPrefix is the envconfig prefix shared by all KOEPON_* variables.
const EnvPrefix = "KOEPON"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "KOEPON_DB_DSN"
	EnvDBHost = "KOEPON_DB_HOST"
	EnvDBUser = "KOEPON_DB_USER"
	EnvDBName = "KOEPON_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
