// Package config provides configuration parsing for pagefiles projects.
//
// The configuration is stored in pagefiles.json (or pagefiles.yaml) at the
// project root. This package handles loading, saving, and validating
// configuration. Every field is optional.
//
// # Configuration File Structure
//
//	{
//	  "pages": ["src/**/*.page.tsx"],
//	  "layouts": ["src/**/*.layout.tsx"],
//	  "moduleId": "virtual:pagefiles",
//	  "output": "src/pagefiles.gen.js",
//	  "manifest": "pagefiles.json.gen",
//	  "importMode": "auto",
//	  "mode": "auto",
//	  "sandbox": {
//	    "node": "node",
//	    "timeout": "10s",
//	    "concurrency": 4,
//	    "cacheSize": 512
//	  },
//	  "dev": {
//	    "port": 5174,
//	    "host": "localhost",
//	    "debounce": "50ms"
//	  }
//	}
//
// # Environment
//
// PAGEFILES_MODE, PAGEFILES_NODE and PAGEFILES_PORT override the file.
// A .env file at the project root is loaded first and never overrides
// variables that are already set.
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Output:", cfg.OutputPath())
package config
