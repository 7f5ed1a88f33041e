package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"fastform/internal/gateway/config"
	pagerepo "fastform/internal/gateway/repository/page"
)

func TestChoosePageStore(t *testing.T) {
	noS3 := func() (pagerepo.Store, error) { return nil, errors.New("s3 should not be used") }

	dir := t.TempDir()
	store, err := choosePageStore(&config.Config{PageStore: config.PageStoreConfig{Dir: dir}}, noS3)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), "t1", "p.png", []byte("png")))
	_, err = os.Stat(filepath.Join(dir, "t1", "p.png"))
	require.NoError(t, err)

	store, err = choosePageStore(&config.Config{}, noS3)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), "t1", "p.png", []byte("png")))

	full := config.PageStoreConfig{Enabled: true, Endpoint: "minio:9000", AccessKey: "a", SecretKey: "s", Bucket: "b"}
	_, err = choosePageStore(&config.Config{PageStore: full}, noS3)
	require.ErrorContains(t, err, "s3 should not be used")
}

func TestInitStoresWithoutDatabaseUsesMemory(t *testing.T) {
	stores, err := initStores(&config.Config{})
	require.NoError(t, err)
	require.Nil(t, stores.db)
	require.NoError(t, stores.Close())
}
