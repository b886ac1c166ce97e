package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkodi/qrcode-service/internal/config"
	"github.com/darkodi/qrcode-service/internal/content"
	"github.com/darkodi/qrcode-service/internal/model"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(context.Background(), &config.DatabaseConfig{Driver: DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newShortURL(code string) *model.ShortURL {
	now := time.Now().UTC()
	return &model.ShortURL{
		ID:             uuid.NewString(),
		ShortCode:      code,
		DestinationURL: "https://example.com",
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func newQRCode(c content.Content) *model.QRCode {
	now := time.Now().UTC()
	return &model.QRCode{
		ID:         uuid.NewString(),
		Name:       "test",
		Content:    c,
		QRCodeData: "payload",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestRebind(t *testing.T) {
	pg := conn{driver: DriverPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	lite := conn{driver: DriverSQLite}
	assert.Equal(t, "SELECT ?", lite.rebind("SELECT ?"))
}

func TestQRCodeRepository_CreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	repos := store.Repos()

	short := newShortURL("abcd1234")
	require.NoError(t, repos.ShortURLs.Create(ctx, short))

	owner := "user-1"
	qr := newQRCode(content.Content{Type: content.TypeURL, Data: content.URL{URL: "https://example.com", IsEditable: true}})
	qr.OwnerID = &owner
	qr.ShortURLID = &short.ID
	qr.Config = []byte(`{"color":"#000"}`)
	require.NoError(t, repos.QRCodes.Create(ctx, qr))

	got, err := repos.QRCodes.GetByID(ctx, qr.ID)
	require.NoError(t, err)
	assert.Equal(t, qr.Content, got.Content)
	assert.Equal(t, "user-1", *got.OwnerID)
	assert.JSONEq(t, `{"color":"#000"}`, string(got.Config))
	require.NotNil(t, got.ShortURL)
	assert.Equal(t, "abcd1234", got.ShortURL.ShortCode)
	assert.True(t, got.IsDynamic())

	list, err := repos.QRCodes.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestQRCodeRepository_NotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	repos := store.Repos()

	_, err := repos.QRCodes.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repos.QRCodes.Delete(ctx, "missing"), ErrNotFound)
	assert.ErrorIs(t, repos.QRCodes.Update(ctx, newQRCode(content.Content{Type: content.TypeText, Data: content.Text{Value: "x"}})), ErrNotFound)
}

func TestQRCodeRepository_UpdateDetachesShortURL(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	repos := store.Repos()

	short := newShortURL("detach01")
	require.NoError(t, repos.ShortURLs.Create(ctx, short))

	qr := newQRCode(content.Content{Type: content.TypeURL, Data: content.URL{URL: "https://example.com", IsEditable: true}})
	qr.ShortURLID = &short.ID
	require.NoError(t, repos.QRCodes.Create(ctx, qr))

	qr.Content = content.Content{Type: content.TypeURL, Data: content.URL{URL: "https://example.org"}}
	qr.ShortURLID = nil
	qr.QRCodeData = "https://example.org"
	require.NoError(t, repos.QRCodes.Update(ctx, qr))

	got, err := repos.QRCodes.GetByID(ctx, qr.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ShortURLID)
	assert.Nil(t, got.ShortURL)
	assert.Equal(t, "https://example.org", got.QRCodeData)
}

func TestShortURLRepository_DuplicateCode(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	repos := store.Repos()

	require.NoError(t, repos.ShortURLs.Create(ctx, newShortURL("dupe0001")))
	err := repos.ShortURLs.Create(ctx, newShortURL("dupe0001"))
	assert.ErrorIs(t, err, ErrShortCodeTaken)
}

func TestShortURLRepository_DuplicateCodeInsideTx(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Repos().ShortURLs.Create(ctx, newShortURL("taken001")))

	err := store.WithinTx(ctx, func(r Repos) error {
		if err := r.ShortURLs.Create(ctx, newShortURL("taken001")); !errors.Is(err, ErrShortCodeTaken) {
			return err
		}
		// the transaction is still usable after the collision
		return r.ShortURLs.Create(ctx, newShortURL("fresh001"))
	})
	require.NoError(t, err)

	got, err := store.Repos().ShortURLs.GetByShortCode(ctx, "fresh001")
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestShortURLRepository_Updates(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	repos := store.Repos()

	short := newShortURL("upd00001")
	require.NoError(t, repos.ShortURLs.Create(ctx, short))

	later := time.Now().UTC().Add(time.Minute)
	require.NoError(t, repos.ShortURLs.UpdateDestination(ctx, short.ID, "https://example.org/new", later))
	require.NoError(t, repos.ShortURLs.SetActive(ctx, short.ID, false, later))

	got, err := repos.ShortURLs.GetByID(ctx, short.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/new", got.DestinationURL)
	assert.False(t, got.IsActive)

	require.NoError(t, repos.ShortURLs.Delete(ctx, short.ID))
	_, err = repos.ShortURLs.GetByID(ctx, short.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWithinTx_RollsBack(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(r Repos) error {
		require.NoError(t, r.ShortURLs.Create(ctx, newShortURL("rollback")))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Repos().ShortURLs.GetByShortCode(ctx, "rollback")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDomainRepository(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	repos := store.Repos()
	now := time.Now().UTC()

	pending := &model.CustomDomain{
		ID: uuid.NewString(), OwnerID: "user-1", Domain: "Go.Example.com",
		SSLStatus: model.SSLPendingValidation, IsDefault: true, CreatedAt: now,
	}
	assert.ErrorIs(t, repos.Domains.Create(ctx, pending), ErrDomainNotActive)

	pending.IsDefault = false
	require.NoError(t, repos.Domains.Create(ctx, pending))
	assert.ErrorIs(t, repos.Domains.SetDefault(ctx, "user-1", pending.ID), ErrDomainNotActive)

	active := &model.CustomDomain{
		ID: uuid.NewString(), OwnerID: "user-1", Domain: "qr.example.com",
		SSLStatus: model.SSLActive, IsDefault: true, CreatedAt: now.Add(time.Second),
	}
	require.NoError(t, repos.Domains.Create(ctx, active))

	require.NoError(t, repos.Domains.UpdateSSLStatus(ctx, pending.ID, model.SSLActive))
	require.NoError(t, repos.Domains.SetDefault(ctx, "user-1", pending.ID))

	domains, err := repos.Domains.ListByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, domains, 2)
	assert.Equal(t, "go.example.com", domains[0].Domain)
	assert.True(t, domains[0].IsDefault)
	assert.False(t, domains[1].IsDefault)

	require.NoError(t, repos.Domains.UpdateSSLStatus(ctx, pending.ID, model.SSLPendingValidation))
	domains, err = repos.Domains.ListByOwner(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, domains[0].IsDefault)

	assert.ErrorIs(t, repos.Domains.SetDefault(ctx, "user-2", pending.ID), ErrNotFound)
}
