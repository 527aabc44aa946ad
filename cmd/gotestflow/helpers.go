package main

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/wallarm/gotestflow/internal/config"
	"github.com/wallarm/gotestflow/internal/poll"
	"github.com/wallarm/gotestflow/internal/snapshot"
)

const httpProto = "http"

var (
	ErrInvalidScheme = errors.New("invalid URL scheme")
	ErrEmptyHost     = errors.New("empty host")
	ErrInvalidHeader = errors.New("invalid header, expected 'Name: value'")
)

// validateURL validates the given URL and URL scheme.
func validateURL(rawURL string, protocol string) (*url.URL, error) {
	validURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	re := regexp.MustCompile(fmt.Sprintf("^%ss?$", protocol))

	if !re.MatchString(validURL.Scheme) {
		return nil, ErrInvalidScheme
	}

	if validURL.Host == "" {
		return nil, ErrEmptyHost
	}

	return validURL, nil
}

func validateLogFormat(logFormat string) error {
	if _, ok := logFormatsSet[logFormat]; !ok {
		return fmt.Errorf("invalid log format: %s", logFormat)
	}

	return nil
}

// requestHeaders merges the config.yaml headers with the --addHeader one.
func requestHeaders(cfg *config.Config) (map[string]string, error) {
	headers := make(map[string]string, len(cfg.HTTPHeaders)+1)
	for name, value := range cfg.HTTPHeaders {
		headers[name] = value
	}

	if cfg.AddHeader == "" {
		return headers, nil
	}

	name, value, ok := strings.Cut(cfg.AddHeader, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return nil, ErrInvalidHeader
	}

	headers[name] = strings.TrimSpace(value)

	return headers, nil
}

func pollOptions(cfg *config.Config) poll.Options {
	return poll.Options{
		Interval:    time.Duration(cfg.PollInterval) * time.Millisecond,
		MaxAttempts: cfg.PollMaxAttempts,
	}
}

func snapshotOptions(cfg *config.Config) snapshot.Options {
	return snapshot.Options{
		SettleDelay:       time.Duration(cfg.SettleDelay) * time.Millisecond,
		MaxDiffPixelRatio: cfg.MaxDiffPixelRatio,
		PixelThreshold:    cfg.PixelThreshold,
	}
}
