/*
 * Copyright 2026 The Yorkie Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */


// Package backend provides the backend implementation of tripsync.
// This package is responsible for managing the database and other
// resources required to run tripsync.
package backend

import (
	"context"
	"fmt"
	"os"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yorkie-team/tripsync/pkg/errors"
	"github.com/yorkie-team/tripsync/pkg/locker"
	"github.com/yorkie-team/tripsync/server/backend/background"
	"github.com/yorkie-team/tripsync/server/backend/database"
	"github.com/yorkie-team/tripsync/server/backend/database/bolt"
	memdb "github.com/yorkie-team/tripsync/server/backend/database/memory"
	"github.com/yorkie-team/tripsync/server/backend/database/mongo"
	"github.com/yorkie-team/tripsync/server/backend/database/postgres"
	"github.com/yorkie-team/tripsync/server/backend/database/redis"
	"github.com/yorkie-team/tripsync/server/backend/database/s3"
	"github.com/yorkie-team/tripsync/server/backend/pubsub"
	"github.com/yorkie-team/tripsync/server/logging"
	"github.com/yorkie-team/tripsync/server/profiling/prometheus"
)

// ErrMissingDatabaseConfig is returned when the configured database has no
// configuration block.
var ErrMissingDatabaseConfig = errors.InvalidArgument("missing database configuration").WithCode("ErrMissingDatabaseConfig")

// DatabaseConfigs holds the configuration of every database driver. Only
// the one named by Config.Database is used, plus Redis for the fan-out.
type DatabaseConfigs struct {
	Mongo    *mongo.Config
	Redis    *redis.Config
	Postgres *postgres.Config
	Bolt     *bolt.Config
	S3       *s3.Config
}

// Backend manages tripsync's backend such as Database and PubSub. It also
// provides lockers and the background service.
type Backend struct {
	Config *Config

	// PubSub is used to publish/subscribe messages to/from clients.
	PubSub *pubsub.PubSub
	// Broadcaster relays messages to other servers. It is nil without fan-out.
	Broadcaster *pubsub.RedisBroadcaster
	// Lockers is used to lock/unlock itineraries during rollbacks.
	Lockers *locker.Locker

	// Background is used to manage background tasks.
	Background *background.Background

	// Metrics is used to expose metrics.
	Metrics *prometheus.Metrics
	// DB is the database instance.
	DB database.Database

	fanOut *fanOut

	// fanoutClient is closed on shutdown when it is not the database's own.
	fanoutClient *goredis.Client
}

// New creates a new instance of Backend.
func New(
	conf *Config,
	dbConfs *DatabaseConfigs,
	metrics *prometheus.Metrics,
) (*Backend, error) {
	// 01. Build the server info with the given hostname or the hostname of the
	// current machine.
	if conf.Hostname == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("os.Hostname: %w", err)
		}
		conf.Hostname = hostname
	}

	// 02. Create the pubsub, lockers and the background service.
	ps := pubsub.New()
	lockers := locker.New()
	bg := background.New(metrics)

	// 03. Create the database instance of the configured kind.
	if dbConfs == nil {
		dbConfs = &DatabaseConfigs{}
	}
	db, err := Dial(database.Kind(conf.Database), dbConfs)
	if err != nil {
		return nil, err
	}

	be := &Backend{
		Config:     conf,
		PubSub:     ps,
		Lockers:    lockers,
		Background: bg,
		Metrics:    metrics,
		DB:         db,
		fanOut:     newFanOut(int64(conf.FlushConcurrency)),
	}

	// 04. Create the fan-out over redis pub/sub, reusing the client of the
	// redis database when there is one.
	if conf.RedisFanout {
		client, err := be.fanoutRedis(dbConfs.Redis)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		be.Broadcaster = pubsub.NewRedisBroadcaster(client, "")
		ps.SetBroadcaster(be.Broadcaster)
	}

	logging.DefaultLogger().Infof("backend created: db: %s, fanout: %t", conf.Database, conf.RedisFanout)

	return be, nil
}

// Dial creates the database of the given kind.
func Dial(kind database.Kind, confs *DatabaseConfigs) (database.Database, error) {
	switch kind {
	case database.Memory, "":
		return memdb.New()
	case database.Mongo:
		if confs.Mongo == nil {
			return nil, fmt.Errorf("%s: %w", kind, ErrMissingDatabaseConfig)
		}
		return mongo.Dial(confs.Mongo)
	case database.Redis:
		if confs.Redis == nil {
			return nil, fmt.Errorf("%s: %w", kind, ErrMissingDatabaseConfig)
		}
		return redis.Dial(confs.Redis)
	case database.Postgres:
		if confs.Postgres == nil {
			return nil, fmt.Errorf("%s: %w", kind, ErrMissingDatabaseConfig)
		}
		return postgres.Dial(confs.Postgres)
	case database.Bolt:
		if confs.Bolt == nil {
			return nil, fmt.Errorf("%s: %w", kind, ErrMissingDatabaseConfig)
		}
		return bolt.Open(confs.Bolt)
	case database.S3:
		if confs.S3 == nil {
			return nil, fmt.Errorf("%s: %w", kind, ErrMissingDatabaseConfig)
		}
		return s3.Dial(confs.S3)
	default:
		return nil, fmt.Errorf("unknown database %q", kind)
	}
}

func (b *Backend) fanoutRedis(conf *redis.Config) (*goredis.Client, error) {
	if client, ok := b.DB.(*redis.Client); ok {
		return client.Redis(), nil
	}
	if conf == nil {
		return nil, fmt.Errorf("redis fanout: %w", ErrMissingDatabaseConfig)
	}

	client, err := redis.Dial(conf)
	if err != nil {
		return nil, fmt.Errorf("redis fanout: %w", err)
	}
	b.fanoutClient = client.Redis()
	return b.fanoutClient, nil
}

// Start starts the backend.
func (b *Backend) Start(ctx context.Context) error {
	if b.Broadcaster != nil {
		if err := b.Broadcaster.Start(ctx, b.PubSub); err != nil {
			return err
		}
	}

	logging.DefaultLogger().Infof("backend started")
	return nil
}

// Shutdown closes all resources of this instance.
func (b *Backend) Shutdown() error {
	var errs []error

	if b.Broadcaster != nil {
		b.Broadcaster.Stop()
	}

	b.Background.Close()

	if b.fanoutClient != nil {
		if err := b.fanoutClient.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := b.DB.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	logging.DefaultLogger().Infof("backend stopped")
	return nil
}
