package users

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testTimeout = 10 * time.Second

// TestMain starts one MongoDB container for the package when GO_TEST_INTEGRATION is set and
// exports its address as DATABASE_URL. Each test gets its own database.
func TestMain(m *testing.M) {
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		os.Exit(m.Run())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	mongoC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7.0",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start mongo testcontainer: %v\n", err)
		os.Exit(1)
	}

	host, err := mongoC.Host(ctx)
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}
	port, err := mongoC.MappedPort(ctx, "27017/tcp")
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get mapped port: %v\n", err)
		os.Exit(1)
	}
	_ = os.Setenv("DATABASE_URL", fmt.Sprintf("mongodb://%s:%s", host, port.Port()))

	code := m.Run()

	_ = mongoC.Terminate(context.Background())
	os.Exit(code)
}

func mustNewMongo(t *testing.T) *MongoRepository {
	t.Helper()

	uri := os.Getenv("DATABASE_URL")
	if uri == "" {
		t.Skip("DATABASE_URL not set; run with GO_TEST_INTEGRATION=1")
	}

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	dbName := "users_test_" + uuid.NewString()
	repo, err := NewMongoRepository(ctx, uri, dbName)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()
		_ = repo.db.Drop(ctx)
		_ = repo.Close(ctx)
	})
	return repo
}

func sampleUser(id, username string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		Role:         RoleMember,
		PasswordHash: "$argon2id$placeholder",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestMongoCreateAndLookup(t *testing.T) {
	repo := mustNewMongo(t)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	in := sampleUser("u-1", "alice")
	require.NoError(t, repo.Create(ctx, in))

	byID, err := repo.ByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)
	assert.Equal(t, in.CreatedAt.Truncate(time.Millisecond), byID.CreatedAt.UTC())

	byName, err := repo.ByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "u-1", byName.ID)

	_, err = repo.ByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.Create(ctx, sampleUser("u-2", "alice"))
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestMongoUpdates(t *testing.T) {
	repo := mustNewMongo(t)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	require.NoError(t, repo.Create(ctx, sampleUser("u-1", "alice")))
	require.NoError(t, repo.Create(ctx, sampleUser("u-2", "bob")))

	updated, err := repo.UpdateProfile(ctx, "u-1", "alice2", "a2@example.com", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "alice2", updated.Username)
	assert.Equal(t, "a2@example.com", updated.Email)

	_, err = repo.UpdateProfile(ctx, "u-1", "bob", "a2@example.com", time.Now())
	assert.ErrorIs(t, err, ErrUsernameTaken)

	require.NoError(t, repo.UpdatePassword(ctx, "u-1", "new-hash", time.Now()))
	got, err := repo.ByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	assert.ErrorIs(t, repo.UpdatePassword(ctx, "missing", "x", time.Now()), ErrNotFound)
}

func TestMongoSoftDelete(t *testing.T) {
	repo := mustNewMongo(t)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	require.NoError(t, repo.Create(ctx, sampleUser("u-1", "alice")))
	require.NoError(t, repo.SoftDelete(ctx, "u-1", time.Now()))

	_, err := repo.ByID(ctx, "u-1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.ByUsername(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.SoftDelete(ctx, "u-1", time.Now()), ErrNotFound)

	require.NoError(t, repo.Create(ctx, sampleUser("u-3", "alice")), "username is reusable after delete")
}
