// containers.go
//
// A document persistence store for wikis, with versioning, attachments and a recycle bin
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of docstore.
// docstore is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// docstore is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with docstore.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package testsupport

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/localnerve/docstore/internal/config"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	defaultMinIOImage   = "minio/minio:RELEASE.2024-01-16T16-07-38Z"
	defaultMariaDBImage = "mariadb:11.4"
	minioUser           = "docstore"
	minioPassword       = "docstore-secret"
)

// Containers are the external services started for integration runs
type Containers struct {
	MinIO    testcontainers.Container
	Database testcontainers.Container

	MinIOConfig    config.MinIOConfig
	DatabaseConfig config.DatabaseConfig
}

// Terminate stops every started container
func (c *Containers) Terminate(t testing.TB) {
	ctx := context.Background()
	if c.MinIO != nil {
		if err := c.MinIO.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate MinIO: %v", err)
		}
	}
	if c.Database != nil {
		if err := c.Database.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate database: %v", err)
		}
	}
}

func imageOr(env, def string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

// StartMinIO runs a MinIO server and returns its client configuration
func StartMinIO(ctx context.Context) (testcontainers.Container, config.MinIOConfig, error) {
	port, err := nat.NewPort("tcp", "9000")
	if err != nil {
		return nil, config.MinIOConfig{}, err
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        imageOr("MINIO_IMAGE", defaultMinIOImage),
			ExposedPorts: []string{string(port)},
			Env: map[string]string{
				"MINIO_ROOT_USER":     minioUser,
				"MINIO_ROOT_PASSWORD": minioPassword,
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/live").WithPort(port).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, config.MinIOConfig{}, fmt.Errorf("start minio: %w", err)
	}
	host, err := c.Host(ctx)
	if err != nil {
		return c, config.MinIOConfig{}, err
	}
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		return c, config.MinIOConfig{}, err
	}
	return c, config.MinIOConfig{
		Endpoint:  host + ":" + mapped.Port(),
		AccessKey: minioUser,
		SecretKey: minioPassword,
		Bucket:    "docstore-test",
	}, nil
}

// StartMariaDB runs a MariaDB server and returns the connection configuration of its
// main wiki database
func StartMariaDB(ctx context.Context) (testcontainers.Container, config.DatabaseConfig, error) {
	port, err := nat.NewPort("tcp", "3306")
	if err != nil {
		return nil, config.DatabaseConfig{}, err
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        imageOr("DB_IMAGE", defaultMariaDBImage),
			ExposedPorts: []string{string(port)},
			Env: map[string]string{
				"MARIADB_ROOT_PASSWORD": "rootpass",
				"MARIADB_DATABASE":      "xwiki",
			},
			// throwaway data directory
			HostConfigModifier: func(hostConfig *container.HostConfig) {
				hostConfig.Tmpfs = map[string]string{"/var/lib/mysql": "rw"}
			},
			WaitingFor: wait.ForListeningPort(port).WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, config.DatabaseConfig{}, fmt.Errorf("start mariadb: %w", err)
	}
	host, err := c.Host(ctx)
	if err != nil {
		return c, config.DatabaseConfig{}, err
	}
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		return c, config.DatabaseConfig{}, err
	}
	return c, config.DatabaseConfig{
		Type:            "mariadb",
		Host:            host,
		Port:            mapped.Port(),
		Name:            "xwiki",
		User:            "root",
		Password:        "rootpass",
		ConnectionLimit: 10,
		MainWiki:        "xwiki",
		SchemaVersion:   1,
		Charset:         "utf8mb4",
		Collation:       "utf8mb4_bin",
	}, nil
}

// MinIO starts a MinIO container for t, skipping in short mode
func MinIO(t *testing.T) config.MinIOConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping container test in short mode")
	}
	ctx := context.Background()
	c, cfg, err := StartMinIO(ctx)
	if c != nil {
		t.Cleanup(func() {
			if err := c.Terminate(ctx); err != nil {
				t.Logf("Failed to terminate MinIO container: %v", err)
			}
		})
	}
	if err != nil {
		t.Fatalf("Failed to start MinIO container: %v", err)
	}
	return cfg
}

// StartAll starts every service container. t may be nil for standalone use.
func StartAll(t testing.TB) (*Containers, error) {
	ctx := context.Background()
	cs := &Containers{}

	db, dbCfg, err := StartMariaDB(ctx)
	cs.Database = db
	if err != nil {
		cs.Terminate(t)
		return nil, err
	}
	cs.DatabaseConfig = dbCfg
	logMessage(t, "DB_HOST=%s DB_PORT=%s", dbCfg.Host, dbCfg.Port)

	mc, minioCfg, err := StartMinIO(ctx)
	cs.MinIO = mc
	if err != nil {
		cs.Terminate(t)
		return nil, err
	}
	cs.MinIOConfig = minioCfg
	logMessage(t, "MINIO_ENDPOINT=%s", minioCfg.Endpoint)

	return cs, nil
}

func logMessage(t testing.TB, format string, args ...any) {
	if t != nil {
		t.Logf(format, args...)
	} else {
		fmt.Printf(format+"\n", args...)
	}
}
