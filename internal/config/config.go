package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// ErrMissingJudgeKey is returned when no credential for the judge model is configured.
var ErrMissingJudgeKey = errors.New("OPENAI_API_KEY is not configured")

const (
	DefaultJudgeModel = "gpt-4.1"
	DefaultTestDelay  = time.Second
)

// Config holds runtime settings for the server and the CLI. Values come from
// environment variables; see Load for the keys.
type Config struct {
	HTTPAddr string

	JudgeAPIKey  string
	JudgeBaseURL string
	JudgeModel   string

	TutorURL     string
	TutorAPIKey  string
	TutorTimeout time.Duration

	MongoURI      string
	MongoDatabase string

	TestDelay time.Duration
}

// Load reads the configuration from the environment.
func Load() Config {
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("http_addr", ":8080")
	v.SetDefault("judge_model", DefaultJudgeModel)
	v.SetDefault("tutor_timeout", 60*time.Second)
	v.SetDefault("mongo_database", "tutor_eval")
	v.SetDefault("eval_test_delay", DefaultTestDelay)

	// Keys without defaults still need to be known to viper for AutomaticEnv lookups.
	for _, key := range []string{"openai_api_key", "judge_base_url", "tutor_url", "tutor_api_key", "mongo_uri"} {
		_ = v.BindEnv(key)
	}

	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) Config {
	return Config{
		HTTPAddr:      v.GetString("http_addr"),
		JudgeAPIKey:   v.GetString("openai_api_key"),
		JudgeBaseURL:  v.GetString("judge_base_url"),
		JudgeModel:    v.GetString("judge_model"),
		TutorURL:      v.GetString("tutor_url"),
		TutorAPIKey:   v.GetString("tutor_api_key"),
		TutorTimeout:  v.GetDuration("tutor_timeout"),
		MongoURI:      v.GetString("mongo_uri"),
		MongoDatabase: v.GetString("mongo_database"),
		TestDelay:     v.GetDuration("eval_test_delay"),
	}
}

// RequireJudgeCredentials reports a configuration error when the judge cannot be called.
func (c Config) RequireJudgeCredentials() error {
	if c.JudgeAPIKey == "" {
		return ErrMissingJudgeKey
	}
	return nil
}
