package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ParseQueueURL parses a queue URL into a QueueConfig.
//
// Recognised schemes:
//
//	list:a:b:c                          in-memory colon-separated test list
//	file:/path/to/tests                 newline-delimited file
//	redis://host[:port]/db?build=…      distributed queue
//	rediss://host[:port]/db?build=…     distributed queue over TLS
//
// For redis/rediss the query must carry `build`; the remaining options
// (worker, timeout, max_requeues, requeue_tolerance, retry, socket_timeout,
// socket_connect_timeout, retry_on_timeout) are optional.
func ParseQueueURL(rawURL string) (*QueueConfig, error) {
	scheme, rest, found := strings.Cut(rawURL, ":")
	if !found || scheme == "" {
		return nil, NewURLError(rawURL, fmt.Errorf("%w: missing scheme", ErrInvalidQueueURL))
	}

	switch scheme {
	case SchemeList, SchemeFile:
		// The payload may contain characters net/url treats specially
		// (`#` in test identifiers, `:` as the list separator), so it is
		// taken verbatim after the scheme.
		cfg := DefaultQueueConfig()
		cfg.Scheme = scheme
		cfg.Path = strings.TrimPrefix(rest, "//")
		if cfg.Path == "" {
			return nil, NewURLError(rawURL, fmt.Errorf("%w: empty %s payload", ErrInvalidQueueURL, scheme))
		}
		return cfg, nil

	case SchemeRedis, SchemeRediss:
		return parseRedisURL(rawURL)

	default:
		return nil, NewURLError(rawURL, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme))
	}
}

func parseRedisURL(rawURL string) (*QueueConfig, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, NewURLError(rawURL, err)
	}

	cfg := DefaultQueueConfig()
	cfg.Scheme = u.Scheme

	host := u.Hostname()
	if host == "" {
		return nil, NewURLError(rawURL, fmt.Errorf("%w: missing host", ErrInvalidQueueURL))
	}
	port := u.Port()
	if port == "" {
		port = "6379"
	}
	cfg.Addr = host + ":" + port

	if db := strings.TrimPrefix(u.Path, "/"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return nil, NewURLError(rawURL, fmt.Errorf("%w: bad db index %q", ErrInvalidQueueURL, db))
		}
		cfg.DB = n
	}

	query := u.Query()

	cfg.BuildID = query.Get("build")
	if cfg.BuildID == "" {
		return nil, NewURLError(rawURL, fmt.Errorf("%w: missing `build` parameter", ErrInvalidQueueURL))
	}
	cfg.WorkerID = query.Get("worker")

	if cfg.Timeout, err = queryDuration(query, "timeout"); err != nil {
		return nil, NewURLError(rawURL, err)
	}
	if cfg.MaxRequeues, err = queryInt(query, "max_requeues"); err != nil {
		return nil, NewURLError(rawURL, err)
	}
	if cfg.RequeueTolerance, err = queryFloat(query, "requeue_tolerance"); err != nil {
		return nil, NewURLError(rawURL, err)
	}

	retry, err := queryInt(query, "retry")
	if err != nil {
		return nil, NewURLError(rawURL, err)
	}
	cfg.Retry = retry != 0

	if cfg.SocketTimeout, err = querySeconds(query, "socket_timeout"); err != nil {
		return nil, NewURLError(rawURL, err)
	}
	if cfg.SocketConnectTimeout, err = querySeconds(query, "socket_connect_timeout"); err != nil {
		return nil, NewURLError(rawURL, err)
	}

	if raw := query.Get("retry_on_timeout"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, NewURLError(rawURL, fmt.Errorf("%w: bad `retry_on_timeout` value %q", ErrInvalidQueueURL, raw))
		}
		cfg.RetryOnTimeout = b
	}

	return cfg, nil
}

// queryDuration reads a float number of seconds into a time.Duration.
func queryDuration(query url.Values, name string) (time.Duration, error) {
	secs, err := queryFloat(query, name)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// querySeconds reads an integer number of seconds into a time.Duration.
func querySeconds(query url.Values, name string) (time.Duration, error) {
	n, err := queryInt(query, name)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

func queryInt(query url.Values, name string) (int, error) {
	raw := query.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: bad `%s` value %q", ErrInvalidQueueURL, name, raw)
	}
	return n, nil
}

func queryFloat(query url.Values, name string) (float64, error) {
	raw := query.Get(name)
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad `%s` value %q", ErrInvalidQueueURL, name, raw)
	}
	return f, nil
}
