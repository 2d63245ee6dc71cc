// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

// Package config loads Replayline configuration with Koanf v2.
//
// Sources are layered with increasing priority:
//
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/replayline/config.yaml)
//  3. Environment variables, mapped explicitly by envTransformFunc
//
// Unknown environment variables are ignored. Comma-separated values are split
// for the slice settings listed in sliceConfigPaths.
//
// Campaign definitions (id, token, allowed domains) are nested lists and can
// only be supplied through the YAML file:
//
//	security:
//	  campaigns:
//	    - id: spring-launch
//	      token: "s3cret"
//	      allowed_domains: ["shop.example.com"]
package config
