// Package config provides configuration parsing for bindsync projects.
//
// The configuration lives in bindsync.json, bindsync.toml or bindsync.yaml
// at the project root. This package handles loading, saving, and
// validating it.
//
// # Configuration File Structure
//
//	{
//	  "client": {
//	    "endpoint": "http://localhost:8080/rpc",
//	    "timeout": "10s",
//	    "csrfToken": ""
//	  },
//	  "push": {
//	    "url": "ws://localhost:8080/push"
//	  },
//	  "server": {
//	    "addr": ":8080",
//	    "csrfSecret": "change-me",
//	    "tokenTTL": "12h"
//	  },
//	  "snapshot": {
//	    "store": "bolt",
//	    "path": "bindsync.db",
//	    "debounce": "250ms"
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.LoadFromDir(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Endpoint:", cfg.Client.Endpoint)
package config
