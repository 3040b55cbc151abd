package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/viper"

	"github.com/dudk/airwave"
	"github.com/dudk/airwave/eq"
	"github.com/dudk/airwave/log"
	"github.com/dudk/airwave/pipe"
	pcm "github.com/dudk/airwave/signal"
	"github.com/dudk/airwave/source"
)

func setDefaults() {
	viper.SetDefault("source", "streamed")
	viper.SetDefault("host", source.DefaultHost)
	viper.SetDefault("port", source.DefaultPort)
	viper.SetDefault("fifo", source.DefaultFIFOPath)
	viper.SetDefault("control", fmt.Sprintf("%s:%d", source.DefaultHost, source.DefaultControlPort))
	viper.SetDefault("rate", 44100)
	viper.SetDefault("bits", 16)
	viper.SetDefault("channels", 2)
	viper.SetDefault("volume", 100)
	viper.SetDefault("preamp", 0.0)
}

func loadConfig(path string) error {
	setDefaults()
	viper.SetEnvPrefix("airwave")
	viper.AutomaticEnv()
	if path == "" {
		return nil
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}
	return nil
}

func sourceConfig() (source.Config, error) {
	format := airwave.Format{
		SampleRate: viper.GetInt("rate"),
		BitDepth:   pcm.BitDepth(viper.GetInt("bits")),
		Channels:   viper.GetInt("channels"),
	}.Clamp()

	config := source.Config{
		Host:        viper.GetString("host"),
		Port:        viper.GetInt("port"),
		Path:        viper.GetString("fifo"),
		ControlAddr: viper.GetString("control"),
		Format:      format,
	}
	switch kind := viper.GetString("source"); kind {
	case "streamed":
		config.Kind = source.Streamed
	case "piped":
		config.Kind = source.Piped
	default:
		return config, fmt.Errorf("unknown source kind %q", kind)
	}
	return config, nil
}

func main() {
	configPath := flag.String("config", "", "path to a config file")
	flag.Parse()

	logger := log.GetLogger()
	if err := loadConfig(*configPath); err != nil {
		logger.Errorf("config: %v", err)
		os.Exit(1)
	}

	config, err := sourceConfig()
	if err != nil {
		logger.Errorf("config: %v", err)
		os.Exit(1)
	}

	gains := eq.NewGains()
	gains.SetPreampDB(viper.GetFloat64("preamp"))
	if bands := viper.GetStringSlice("bands"); len(bands) > 0 {
		for i, s := range bands {
			if db, err := strconv.ParseFloat(s, 64); err == nil {
				gains.SetGain(i, db)
			}
		}
	}

	p := pipe.New(config, gains)
	p.SetVolume(uint8(min(max(viper.GetInt("volume"), 0), 100)))
	if err := p.Start(); err != nil {
		logger.Errorf("start: %v", err)
		os.Exit(1)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	logger.Infof("shutting down")
	p.Stop()
}
