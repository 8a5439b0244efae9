package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	Listen   string   `koanf:"listen"`
	Database Database `koanf:"db"`
	Calendar Calendar `koanf:"calendar"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

// Calendar configures the ICS subscription engine.
type Calendar struct {
	// URL is the address of the subscribed iCalendar feed. An empty URL
	// disables the subscription engine.
	URL string `koanf:"url"`
	// RefreshInterval is how long a fetched snapshot is considered fresh.
	RefreshInterval time.Duration `koanf:"refreshinterval"`
	// FetchTimeout bounds a single HTTP fetch of the feed.
	FetchTimeout time.Duration `koanf:"fetchtimeout"`
	Import       Import        `koanf:"import"`
}

// Import configures turning upcoming calendar events into tasks.
type Import struct {
	// Enabled makes the importer run automatically after every successful
	// feed refresh. Manual imports via the API work regardless.
	Enabled bool `koanf:"enabled"`
	// DaysAhead is the look-ahead window for importable events.
	DaysAhead int `koanf:"daysahead"`
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Application{
		Listen: ":8484",
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "taskvault",
			Pass:   "",
			Name:   "taskvault",
			Schema: "taskvault",
		},
		Calendar: Calendar{
			RefreshInterval: 15 * time.Minute,
			FetchTimeout:    15 * time.Second,
			Import: Import{
				Enabled:   false,
				DaysAhead: 7,
			},
		},
	}, "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "TASKVAULT_",
		TransformFunc: func(k, v string) (string, any) {
			// Transform the key.
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "TASKVAULT_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
