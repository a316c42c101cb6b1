package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	SessionSecret       string
	DatabaseURL         string
	RedisURL            string
	FrontendURLEndsWith string // CORS allowed-origin suffix

	// Blockchain gateway
	EthRPCURL           string // JSON-RPC endpoint (Infura or self-hosted node)
	ChainID             int64
	USDTContractAddress string
	DepositAddress      string // platform custodial address deposits must be sent to
	TreasuryPrivateKey  string // hot wallet key used for on-chain withdrawal sends
	SendConfirmTimeout  time.Duration
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	chainID := viper.GetInt64("CHAIN_ID")
	if chainID == 0 {
		chainID = 1 // Ethereum mainnet, where USDT lives
	}

	confirmSecs := viper.GetInt("SEND_CONFIRM_TIMEOUT_SECONDS")
	if confirmSecs == 0 {
		confirmSecs = 90
	}

	return &Config{
		Env:                 env,
		Port:                port,
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DatabaseURL:         viper.GetString("DATABASE_URL"),
		RedisURL:            viper.GetString("REDIS_URL"),
		EthRPCURL:           viper.GetString("ETH_RPC_URL"),
		ChainID:             chainID,
		USDTContractAddress: viper.GetString("USDT_CONTRACT_ADDRESS"),
		DepositAddress:      viper.GetString("DEPOSIT_ADDRESS"),
		TreasuryPrivateKey:  viper.GetString("TREASURY_PRIVATE_KEY"),
		SendConfirmTimeout:  time.Duration(confirmSecs) * time.Second,
	}, nil
}
