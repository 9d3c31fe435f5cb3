package util

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata" // zone database for TIMEZONE lookups

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/stollenaar/aws-rotating-credentials-provider/credentials/filecreds"
)

type Config struct {
	DEBUG             bool
	DISCORD_BOT_TOKEN string

	APPLICATION_ID   snowflake.ID
	ORDER_CHANNEL_ID snowflake.ID

	TIMEZONE       *time.Location
	TIMEZONE_LABEL string
	ROUTER_ADDR    string

	AWS_REGION                  string
	AWS_PARAMETER_NAME          string
	AWS_SHARED_CREDENTIALS_FILE string
}

// ParameterStore is the part of the SSM client used to look up the bot token.
type ParameterStore interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// NewConfig loads .env when present and builds the configuration from the environment.
func NewConfig() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("error loading environment variables: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return configFromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DEBUG", false)
	v.SetDefault("TIMEZONE", "US/Eastern")
	v.SetDefault("TIMEZONE_LABEL", "EST")
	v.SetDefault("ROUTER_ADDR", ":8080")
}

func configFromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DEBUG:                       v.GetBool("DEBUG"),
		DISCORD_BOT_TOKEN:           v.GetString("DISCORD_BOT_TOKEN"),
		TIMEZONE_LABEL:              v.GetString("TIMEZONE_LABEL"),
		ROUTER_ADDR:                 v.GetString("ROUTER_ADDR"),
		AWS_REGION:                  v.GetString("AWS_REGION"),
		AWS_PARAMETER_NAME:          v.GetString("AWS_PARAMETER_NAME"),
		AWS_SHARED_CREDENTIALS_FILE: v.GetString("AWS_SHARED_CREDENTIALS_FILE"),
	}

	if cfg.DISCORD_BOT_TOKEN == "" && cfg.AWS_PARAMETER_NAME == "" {
		return nil, errors.New("DISCORD_BOT_TOKEN or AWS_PARAMETER_NAME is not set")
	}

	var err error
	if cfg.APPLICATION_ID, err = parseID(v, "APPLICATION_ID"); err != nil {
		return nil, err
	}
	if cfg.ORDER_CHANNEL_ID, err = parseID(v, "ORDER_CHANNEL_ID"); err != nil {
		return nil, err
	}

	cfg.TIMEZONE, err = time.LoadLocation(v.GetString("TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("error loading TIMEZONE %q: %w", v.GetString("TIMEZONE"), err)
	}

	return cfg, nil
}

func parseID(v *viper.Viper, key string) (snowflake.ID, error) {
	raw := v.GetString(key)
	if raw == "" {
		return 0, fmt.Errorf("%s is not set", key)
	}
	id, err := snowflake.Parse(raw)
	if err != nil {
		return 0, fmt.Errorf("%s is not a valid id: %w", key, err)
	}
	return id, nil
}

// NewSSMClient builds the parameter store client, preferring the rotating
// credentials file when one is configured.
func NewSSMClient(ctx context.Context, c *Config) (*ssm.Client, error) {
	if c.AWS_SHARED_CREDENTIALS_FILE != "" {
		provider := filecreds.NewFilecredentialsProvider(c.AWS_SHARED_CREDENTIALS_FILE)
		return ssm.New(ssm.Options{
			Credentials: provider,
			Region:      c.AWS_REGION,
		}), nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(c.AWS_REGION))
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}
	return ssm.NewFromConfig(cfg), nil
}

// GetDiscordToken returns DISCORD_BOT_TOKEN, falling back to the SSM parameter.
func (c *Config) GetDiscordToken(ctx context.Context, store ParameterStore) (string, error) {
	if c.DISCORD_BOT_TOKEN != "" {
		return c.DISCORD_BOT_TOKEN, nil
	}
	if store == nil {
		return "", errors.New("no parameter store to resolve AWS_PARAMETER_NAME")
	}

	out, err := store.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(c.AWS_PARAMETER_NAME),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("error from fetching parameter %s: %w", c.AWS_PARAMETER_NAME, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", c.AWS_PARAMETER_NAME)
	}
	return *out.Parameter.Value, nil
}

func (c *Config) SetEphemeral() discord.MessageFlags {
	if c.DEBUG {
		return discord.MessageFlagEphemeral
	}
	return 0
}
