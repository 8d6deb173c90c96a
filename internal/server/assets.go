package server

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/chunkrealm/coreserver/internal/assetsync"
	"github.com/chunkrealm/coreserver/internal/proto"
)

// assetRegistry tracks the live item id set driven by an
// assetsync.AssetLoader and turns its events into C6 packets, fanned out
// to every connected session and replayed in full for new joiners (§4.6).
// Events for any other asset type, recipes included, are ignored.
type assetRegistry struct {
	mu    sync.Mutex
	table *assetsync.IndexedLookupTable
	items map[string]assetsync.ItemAsset
	gen   *assetsync.ItemGenerator
}

func newAssetRegistry() *assetRegistry {
	t := assetsync.NewIndexedLookupTable()
	return &assetRegistry{
		table: t,
		items: make(map[string]assetsync.ItemAsset),
		gen:   &assetsync.ItemGenerator{Table: t},
	}
}

// apply updates the registry for one loader event and returns the packet to
// fan out to live sessions (nil for an Init event, which is instead
// replayed per-joiner via initPackets).
func (a *assetRegistry) apply(ev assetsync.Event) (proto.Packet, error) {
	if ev.AssetType != "items" {
		return nil, nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	switch ev.Kind {
	case assetsync.EventInit:
		for _, id := range ev.IDs {
			a.table.EnsureIndex(id)
			a.items[id] = assetsync.ItemAsset{MaxStack: 64}
		}
		return nil, nil
	case assetsync.EventAddOrUpdate:
		for _, id := range ev.IDs {
			a.table.EnsureIndex(id)
			a.items[id] = assetsync.ItemAsset{MaxStack: 64}
		}
		return a.gen.Update(ev.IDs, a.items)
	case assetsync.EventRemove:
		for _, id := range ev.IDs {
			delete(a.items, id)
		}
		p, err := a.gen.Remove(ev.IDs)
		if err != nil {
			return nil, err
		}
		// The Remove packet above still references each id's index; only
		// now is it safe to free them for reuse (§3, §8 scenario 6).
		for _, id := range ev.IDs {
			a.table.Release(id)
		}
		return p, nil
	default:
		return nil, nil
	}
}

func (a *assetRegistry) initPackets() []proto.Packet {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.items) == 0 {
		return nil
	}
	p, err := a.gen.Init(a.items)
	if err != nil || p == nil {
		return nil
	}
	return []proto.Packet{p}
}

func (s *Server) runAssetLoop(ctx context.Context, loader *assetsync.FSLoader) {
	log := logrus.WithField("component", "server.assets")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-loader.Events():
			if !ok {
				return
			}
			p, err := s.assets.apply(ev)
			if err != nil {
				log.WithError(err).WithField("asset_type", ev.AssetType).Warn("asset event rejected")
				continue
			}
			if p == nil {
				continue
			}
			(&worldBroadcaster{server: s}).Broadcast(p)
		}
	}
}
