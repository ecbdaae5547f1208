package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cv-app-yz/cv-app/internal/analyzer"
	"github.com/cv-app-yz/cv-app/internal/document"
)

const (
	app       = "cv-app"
	envPrefix = "CV_APP"
)

type Config struct {
	BaseURL     string        `mapstructure:"base-url" validate:"required,url"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	UserAgent   string        `mapstructure:"user-agent"`
	Location    string        `mapstructure:"location"`
	MaxFileSize int64         `mapstructure:"max-file-size" validate:"gt=0"`
	// RequireText turns the local "no extractable text" warning into an error.
	RequireText bool   `mapstructure:"require-text"`
	OutputDir   string `mapstructure:"output-dir"`
}

var validate = validator.New()

// Validate reports the first invalid key by its config name.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q check", configKey(e.StructField()), e.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func configKey(field string) string {
	switch field {
	case "BaseURL":
		return "base-url"
	case "Timeout":
		return "timeout"
	case "MaxFileSize":
		return "max-file-size"
	default:
		return field
	}
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "cv-app sends a résumé to the CV analysis service and shows feedback and matching jobs",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cv-app.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base-url", analyzer.DefaultBaseURL)
	v.SetDefault("timeout", analyzer.DefaultTimeout)
	v.SetDefault("max-file-size", document.DefaultMaxSize)
	v.SetDefault("output-dir", ".")
	v.SetDefault("require-text", false)
	// Registered so CV_APP_USER_AGENT and CV_APP_LOCATION reach Unmarshal.
	v.SetDefault("user-agent", "")
	v.SetDefault("location", "")
}

func initConfig() {
	// A missing .env is fine, a broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Without an explicit --config every key has a default.
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
