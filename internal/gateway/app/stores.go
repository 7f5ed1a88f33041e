package app

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	annotationcache "fastform/internal/cache/annotation"
	pagecache "fastform/internal/cache/page"
	usercache "fastform/internal/cache/user"
	"fastform/internal/gateway/config"
	annotationrepo "fastform/internal/gateway/repository/annotation"
	pagerepo "fastform/internal/gateway/repository/page"
	threadrepo "fastform/internal/gateway/repository/thread"
	userrepo "fastform/internal/gateway/repository/user"
)

type gatewayStores struct {
	db          *sql.DB
	users       userrepo.Store
	annotations annotationrepo.Store
	threads     threadrepo.Store
	pages       pagerepo.Store
}

func (s *gatewayStores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initStores(cfg *config.Config) (*gatewayStores, error) {
	s3Factory := newPageS3StoreFactory(cfg)

	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		return initPostgresStores(dsn, cfg, s3Factory)
	}
	return initInMemoryStores(cfg, s3Factory)
}

func newPageS3StoreFactory(cfg *config.Config) func() (pagerepo.Store, error) {
	return func() (pagerepo.Store, error) {
		s3Cfg := pagerepo.S3Config{
			Endpoint:  cfg.PageStore.Endpoint,
			Region:    cfg.PageStore.Region,
			AccessKey: cfg.PageStore.AccessKey,
			SecretKey: cfg.PageStore.SecretKey,
			Bucket:    cfg.PageStore.Bucket,
			UseSSL:    cfg.PageStore.UseSSL,
		}
		s3Store, err := pagerepo.NewS3Store(s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize page s3 store: %w", err)
		}
		log.Printf("page store: s3 bucket=%s endpoint=%s", s3Cfg.Bucket, s3Cfg.Endpoint)
		return s3Store, nil
	}
}

func initPostgresStores(dsn string, cfg *config.Config, s3Factory func() (pagerepo.Store, error)) (*gatewayStores, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	pages, err := choosePageStore(cfg, s3Factory)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Printf("stores: postgres")
	return &gatewayStores{
		db:          db,
		users:       usercache.NewCachedStore(userrepo.NewPostgresStore(db), usercache.DefaultCacheConfig()),
		annotations: annotationcache.NewCachedStore(annotationrepo.NewPostgresStore(db), annotationcache.DefaultCacheConfig()),
		threads:     threadrepo.NewPostgresStore(db),
		pages:       pages,
	}, nil
}

func initInMemoryStores(cfg *config.Config, s3Factory func() (pagerepo.Store, error)) (*gatewayStores, error) {
	pages, err := choosePageStore(cfg, s3Factory)
	if err != nil {
		return nil, err
	}
	log.Printf("stores: in-memory (DATABASE_URL not set)")
	return &gatewayStores{
		users:       userrepo.NewMemoryStore(),
		annotations: annotationrepo.NewMemoryStore(),
		threads:     threadrepo.NewMemoryStore(),
		pages:       pages,
	}, nil
}

// choosePageStore prefers S3, then PAGE_STORE_DIR, then memory. Reads go
// through the page cache either way.
func choosePageStore(
	cfg *config.Config,
	s3Factory func() (pagerepo.Store, error),
) (pagerepo.Store, error) {
	var origin pagerepo.Store
	switch {
	case cfg.PageStore.CanUseS3():
		s3Store, err := s3Factory()
		if err != nil {
			return nil, err
		}
		origin = s3Store
	case cfg.PageStore.Dir != "":
		disk, err := pagerepo.NewDiskStore(cfg.PageStore.Dir)
		if err != nil {
			return nil, err
		}
		log.Printf("page store: disk root=%s", cfg.PageStore.Dir)
		origin = disk
	default:
		if cfg.PageStore.Enabled {
			log.Printf("page store: using in-memory fallback (s3 config incomplete)")
		}
		origin = pagerepo.NewMemoryStore()
	}
	return pagecache.NewCachedStore(origin, pagecache.DefaultCacheConfig()), nil
}
