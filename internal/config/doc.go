// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

/*
Package config provides centralized configuration management for OctoSync.

# Configuration Sources

Configuration is layered with Koanf v2, later layers overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. Optional YAML file (CONFIG_PATH, config.yaml, /etc/octosync/config.yaml)
 3. Environment variables

# Environment Variables

OctoPrint (OctoPrintConfig):
  - OCTOPRINT_URL: Base URL of the OctoPrint server (required)
  - OCTOPRINT_API_KEY: Application or global API key (required)
  - OCTOPRINT_NAME: Display name for the printer record (default: OctoPrint)
  - OCTOPRINT_PRINTER_ID: Stable printer ID; generated from the URL when empty

Connection (ConnectionConfig):
  - HEARTBEAT_INTERVAL: Keep-alive interval while connected (default: 40s)
  - RETRY_BASE_DELAY: Base delay for linear reconnect backoff (default: 5s)
  - MAX_RETRIES: Reconnect attempts before the connection fails (default: 6)
  - REQUEST_TIMEOUT: REST request timeout (default: 10s)

Circuit breaker (BreakerConfig):
  - BREAKER_MAX_REQUESTS, BREAKER_INTERVAL, BREAKER_TIMEOUT, BREAKER_FAILURE_THRESHOLD

Store (StoreConfig):
  - STORE_PATH: Badger directory (default: /data/octosync)
  - STORE_IN_MEMORY: Run badger in memory only (default: false)

Server (ServerConfig):
  - HTTP_HOST, HTTP_PORT (default: 0.0.0.0:8780), HTTP_TIMEOUT
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW
  - ALLOWED_ORIGINS: Comma-separated websocket origins (default: *)

Security (SecurityConfig):
  - ENCRYPTION_SECRET: Secret used to derive the credential encryption key (required)

Supervisor (SupervisorConfig):
  - SUPERVISOR_FAILURE_THRESHOLD, SUPERVISOR_FAILURE_DECAY,
    SUPERVISOR_FAILURE_BACKOFF, SUPERVISOR_SHUTDOWN_TIMEOUT

Logging (LoggingConfig):
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Credential Encryption

API keys are persisted encrypted with AES-256-GCM. The key is derived from
ENCRYPTION_SECRET with HKDF-SHA256; see CredentialEncryptor.
*/
package config
