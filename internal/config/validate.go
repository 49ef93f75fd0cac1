// internal/config/validate.go
package config

import (
	"fmt"
	"net/url"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

var validMentions = map[string]bool{
	"everyone": true, "here": true, "none": true,
}

var validCategories = map[string]bool{
	"movie": true, "episode": true, "series": true,
	"season": true, "album": true, "song": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if c.Server.Port != 0 && (c.Server.Port < 1 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}
	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}

	if c.Catalog.URL == "" {
		errs = append(errs, "catalog.url: required")
	} else if _, err := url.Parse(c.Catalog.URL); err != nil {
		errs = append(errs, fmt.Sprintf("catalog.url: %v", err))
	}
	if c.Catalog.APIKey == "" {
		errs = append(errs, "catalog.api_key: required")
	}

	if c.Notifications.RecheckInterval.Duration < 0 {
		errs = append(errs, "notifications.recheck_interval: must not be negative")
	}
	if c.Notifications.SendInterval.Duration < 0 {
		errs = append(errs, "notifications.send_interval: must not be negative")
	}
	if c.Notifications.MaxRetries < 0 {
		errs = append(errs, "notifications.max_retries: must not be negative")
	}
	if c.Notifications.FallbackFactor < 0 {
		errs = append(errs, "notifications.fallback_factor: must not be negative")
	}

	seen := make(map[string]bool, len(c.Subscribers))
	for i, sub := range c.Subscribers {
		prefix := fmt.Sprintf("subscriber[%d]", i)
		if sub.Name != "" {
			prefix = "subscriber." + sub.Name
		}

		if sub.Name == "" {
			errs = append(errs, fmt.Sprintf("%s.name: required", prefix))
		} else if seen[sub.Name] {
			errs = append(errs, fmt.Sprintf("%s.name: duplicate subscriber name %q", prefix, sub.Name))
		}
		seen[sub.Name] = true

		if sub.UserID == "" {
			errs = append(errs, fmt.Sprintf("%s.user_id: required", prefix))
		}
		if sub.WebhookURL == "" {
			errs = append(errs, fmt.Sprintf("%s.webhook_url: required", prefix))
		} else if !strings.HasPrefix(sub.WebhookURL, "http://") && !strings.HasPrefix(sub.WebhookURL, "https://") {
			errs = append(errs, fmt.Sprintf("%s.webhook_url: must be an http(s) URL", prefix))
		}
		if !validMentions[sub.Mention] {
			errs = append(errs, fmt.Sprintf("%s.mention: must be one of everyone, here, none; got %q", prefix, sub.Mention))
		}
		for _, cat := range sub.Categories {
			if !validCategories[cat] {
				errs = append(errs, fmt.Sprintf("%s.categories: unknown category %q", prefix, cat))
			}
		}
	}

	if c.ImageRelay.Enabled && c.ImageRelay.Endpoint != "" {
		if _, err := url.Parse(c.ImageRelay.Endpoint); err != nil {
			errs = append(errs, fmt.Sprintf("imagerelay.endpoint: %v", err))
		}
	}

	return errs
}
