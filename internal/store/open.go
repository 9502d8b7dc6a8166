package store

import (
	"context"
	"fmt"
	"time"

	"github.com/heysubinoy/kvweb/pkg/config"
	"github.com/heysubinoy/kvweb/pkg/kv"
	log "github.com/sirupsen/logrus"
)

// Open builds the store selected by cfg.Backend.
//
// The redis backend is returned even when the server does not answer a
// ping; requests fail individually until it comes up.
func Open(ctx context.Context, cfg *config.Config, logger log.FieldLogger) (kv.Store, error) {
	logger = logger.WithField("backend", cfg.Backend)

	switch cfg.Backend {
	case config.BackendRedis:
		s := NewRedisStore(RedisOptions{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := s.Ping(ctx); err != nil {
			logger.WithFields(log.Fields{
				"addr": cfg.Redis.Addr(),
				"err":  err,
			}).Warn("Redis is not answering yet")
		} else {
			logger.WithField("addr", cfg.Redis.Addr()).Info("Connected to Redis")
		}
		return s, nil

	case config.BackendMemory:
		logger.Info("Using an in-memory store, data is lost on exit")
		return NewMemStore(), nil

	case config.BackendBolt:
		s, err := OpenBoltStore(cfg.Bolt.Path)
		if err != nil {
			return nil, err
		}
		logger.WithField("path", cfg.Bolt.Path).Info("Opened bolt store")
		return s, nil

	case config.BackendRaft:
		w := logger.WithField("component", "raft").WriterLevel(log.DebugLevel)
		s, err := OpenRaftStore(RaftOptions{
			NodeID:    cfg.Raft.NodeID,
			Addr:      cfg.Raft.Addr,
			Dir:       cfg.Raft.Data,
			Bootstrap: cfg.Raft.Leader,
			LogOutput: w,
		})
		if err != nil {
			return nil, err
		}
		if cfg.Raft.Leader {
			if err := s.WaitForLeader(10 * time.Second); err != nil {
				_ = s.Close()
				return nil, err
			}
		}
		logger.WithFields(log.Fields{
			"node": cfg.Raft.NodeID,
			"addr": cfg.Raft.Addr,
			"data": cfg.Raft.Data,
		}).Info("Started raft node")
		return s, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
