package mysql

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnicart/internal/storage"
)

func TestAdapterRegistrationUsesHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var (
		gotCfg Config
		closed bool
		fake   = &Repository{}
	)
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return fake, func() { closed = true }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{
		Kind:    "mysql",
		DSN:     "user:pass@tcp(localhost:3306)/omnicart",
		Table:   "seller_performance",
		Columns: []string{"run_id", "seller"},
	})
	require.NoError(t, err)

	w, ok := repo.(*wrappedRepo)
	require.True(t, ok, "type = %T", repo)
	assert.Same(t, fake, w.Repository)
	assert.Equal(t, "seller_performance", gotCfg.Table)
	assert.Equal(t, []string{"run_id", "seller"}, gotCfg.Columns)

	repo.Close()
	assert.True(t, closed)
}

func TestNewRepository_BadDSN(t *testing.T) {
	_, _, err := NewRepository(context.Background(), Config{DSN: "not a dsn"})
	require.ErrorContains(t, err, "mysql dsn")
}

func TestInsertSQL(t *testing.T) {
	q, args := insertSQL("shop.sellers", []string{"id", "na`me"}, [][]any{{1, "a"}, {2, "b"}})
	assert.Equal(t, "INSERT INTO `shop`.`sellers` (`id`, `na``me`) VALUES (?, ?), (?, ?)", q)
	assert.Equal(t, []any{1, "a", 2, "b"}, args)
}

func TestChunkRows(t *testing.T) {
	rows := [][]any{{1}, {2}, {3}, {4}, {5}}

	chunks := chunkRows(rows, 2)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 2)
	assert.Len(t, chunks[2], 1)

	assert.Len(t, chunkRows(rows, 10), 1)
	assert.Len(t, chunkRows(rows, 0), 5)
}

func TestBuildCreateTableSQL(t *testing.T) {
	got, err := storage.BuildDDL("mysql", storage.TableDef{
		FQN: "seller_performance",
		Columns: []storage.ColumnDef{
			{Name: "run_id", Type: storage.TypeText, PrimaryKey: true},
			{Name: "categories", Type: storage.TypeText},
			{Name: "avg_rating", Type: storage.TypeFloat},
			{Name: "total_quantity_sold", Type: storage.TypeInt},
			{Name: "created_at", Type: storage.TypeTimestamp, Nullable: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS `seller_performance` (\n"+
		"  `run_id` VARCHAR(255) NOT NULL,\n"+
		"  `categories` TEXT NOT NULL,\n"+
		"  `avg_rating` DOUBLE NOT NULL,\n"+
		"  `total_quantity_sold` BIGINT NOT NULL,\n"+
		"  `created_at` DATETIME(6),\n"+
		"  PRIMARY KEY (`run_id`)\n"+
		") DEFAULT CHARSET=utf8mb4;", got)
}

// TestCopyFrom_Integration runs only when TEST_MYSQL_DSN is set.
func TestCopyFrom_Integration(t *testing.T) {
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("skipping integration test: set TEST_MYSQL_DSN to run")
	}
	ctx := context.Background()
	repo, closeFn, err := NewRepository(ctx, Config{DSN: dsn, Table: "__omnicart_copy_test"})
	require.NoError(t, err)
	defer closeFn()

	require.NoError(t, repo.Exec(ctx, "DROP TABLE IF EXISTS __omnicart_copy_test"))
	require.NoError(t, repo.Exec(ctx, "CREATE TABLE __omnicart_copy_test (a BIGINT, b TEXT)"))

	n, err := repo.CopyFrom(ctx, []string{"a", "b"}, [][]any{{1, "x"}, {2, "y"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
