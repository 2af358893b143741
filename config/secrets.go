package config

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ResolveDemoKey returns the CoinGecko demo key. In prod it is read from the
// SSM parameter named by APIKeyParam, falling back to the configured value.
func (cfg *CoinGeckoConfig) ResolveDemoKey(env string) string {
	if env != "prod" || cfg.APIKeyParam == "" {
		return cfg.DemoKey
	}
	if v := getParameterStoreValue(cfg.APIKeyParam, true); v != "" {
		return v
	}
	return cfg.DemoKey
}

func getParameterStoreValue(parameterName string, decrypt bool) string {
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctxWithTimeout)
	if err != nil {
		return ""
	}

	client := ssm.NewFromConfig(cfg)

	input := &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	}

	result, err := client.GetParameter(ctxWithTimeout, input)
	if err != nil {
		return ""
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return ""
	}

	return *result.Parameter.Value
}
