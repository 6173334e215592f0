// ABOUTME: Bulk loading of an InfraCache from an ObjectSource, one query per object type.
// ABOUTME: Also builds caches straight from a RailJSON document.
package cache

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/2389-research/infracache/logging"
	"github.com/2389-research/infracache/schema"
)

// ObjectSource returns every persisted object of one type for an infrastructure.
type ObjectSource interface {
	LoadObjects(ctx context.Context, infraID ulid.ULID, objType schema.ObjectType) ([]schema.InfraObject, error)
}

// Load builds a cache from src. Source errors are wrapped and returned as is.
func Load(ctx context.Context, src ObjectSource, infraID ulid.ULID) (*InfraCache, error) {
	if src == nil {
		return nil, ErrNoObjectSource
	}
	c := New()
	total := 0
	for _, t := range schema.AllObjectTypes {
		objs, err := src.LoadObjects(ctx, infraID, t)
		if err != nil {
			return nil, fmt.Errorf("load %s objects of infra %s: %w", t, infraID, err)
		}
		if err := c.addAll(objs); err != nil {
			return nil, fmt.Errorf("cache infra %s: %w", infraID, err)
		}
		total += len(objs)
	}

	logging.Component("cache").WithFields(logrus.Fields{
		"action":   "load",
		"infra_id": infraID.String(),
		"objects":  total,
	}).Info("infra cache loaded")
	return c, nil
}

// FromRailJSON builds a cache holding every object of doc.
func FromRailJSON(doc *schema.RailJSON) (*InfraCache, error) {
	c := New()
	if err := c.addAll(doc.Objects()); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *InfraCache) addAll(objs []schema.InfraObject) error {
	for _, obj := range objs {
		cached, err := FromObject(obj)
		if err != nil {
			return err
		}
		if err := c.Add(cached); err != nil {
			return err
		}
	}
	return nil
}
