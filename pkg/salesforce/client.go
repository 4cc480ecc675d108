// Package salesforce provides REST API access to the Salesforce QMS org used
// as an inspection record sink.
package salesforce

import (
	"context"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the Salesforce operations used by the export layer.
type Client interface {
	UpsertInspection(ctx context.Context, record map[string]any) (string, error)
}

// Config holds the credentials and target object for the QMS org.
type Config struct {
	Domain         string
	Username       string
	Password       string
	SecurityToken  string
	ConsumerKey    string
	ConsumerSecret string

	// InspectionObject is the custom SObject receiving records, typically
	// "Inspection__c".
	InspectionObject string
}

// sfClient wraps go-salesforce/v3.
//
// NOTE: the underlying library does not accept context.Context, so ctx covers
// only the rate limiter wait.
type sfClient struct {
	sf      *salesforce.Salesforce
	object  string
	limiter *rate.Limiter
}

// ClientOption configures the client.
type ClientOption func(*sfClient)

// WithRateLimit sets a per-second rate limit for Salesforce API calls.
func WithRateLimit(rps float64) ClientOption {
	return func(c *sfClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// New authenticates with the username-password flow and returns a Client.
func New(cfg Config, opts ...ClientOption) (Client, error) {
	if cfg.InspectionObject == "" {
		cfg.InspectionObject = "Inspection__c"
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Domain,
		Username:       cfg.Username,
		Password:       cfg.Password,
		SecurityToken:  cfg.SecurityToken,
		ConsumerKey:    cfg.ConsumerKey,
		ConsumerSecret: cfg.ConsumerSecret,
	})
	if err != nil {
		return nil, eris.Wrap(err, "sf: init")
	}

	c := &sfClient{sf: sf, object: cfg.InspectionObject}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *sfClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// UpsertInspection inserts one inspection summary record and returns its ID.
func (c *sfClient) UpsertInspection(ctx context.Context, record map[string]any) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", eris.Wrap(err, "sf: rate limit")
	}
	result, err := c.sf.InsertOne(c.object, record)
	if err != nil {
		return "", eris.Wrapf(err, "sf: insert %s", c.object)
	}
	if !result.Success {
		return "", eris.Errorf("sf: insert %s failed: %v", c.object, result.Errors)
	}
	return result.Id, nil
}
