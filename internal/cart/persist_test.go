package cart_test

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tably/checkout/internal/cart"
)

func openStore(t *testing.T) *cart.SQLiteStore {
	t.Helper()
	s, err := cart.OpenSQLite(filepath.Join(t.TempDir(), "cart.db"))
	require.NoError(t, err)
	return s
}

func TestSQLiteRoundTrip(t *testing.T) {
	s := openStore(t)

	snap := cart.Snapshot{
		RestaurantID:   "r1",
		RestaurantName: "Chez Tably",
		TableNumber:    "7",
		Items: []cart.Item{
			{
				ID:                  uuid.New(),
				MenuItemID:          "m1",
				Name:                "Croque",
				UnitPrice:           money("9.50"),
				Quantity:            2,
				Customizations:      map[string]string{"pain": "complet"},
				SpecialInstructions: "bien cuit",
			},
			{ID: uuid.New(), MenuItemID: "m2", Name: "Limonade", UnitPrice: money("3.00"), Quantity: 1},
		},
	}
	require.NoError(t, s.Save(snap))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, snap.RestaurantID, loaded.RestaurantID)
	assert.Equal(t, snap.TableNumber, loaded.TableNumber)
	require.Len(t, loaded.Items, 2)
	assert.True(t, loaded.Subtotal().Equal(snap.Subtotal()))

	byMenu := map[string]cart.Item{}
	for _, it := range loaded.Items {
		byMenu[it.MenuItemID] = it
	}
	assert.Equal(t, "complet", byMenu["m1"].Customizations["pain"])
	assert.Equal(t, "bien cuit", byMenu["m1"].SpecialInstructions)
}

func TestSQLiteSaveReplaces(t *testing.T) {
	s := openStore(t)

	first := cart.Snapshot{RestaurantID: "r1", Items: []cart.Item{
		{ID: uuid.New(), MenuItemID: "m1", UnitPrice: money("5.00"), Quantity: 1},
	}}
	require.NoError(t, s.Save(first))

	second := cart.Snapshot{RestaurantID: "r1", Items: []cart.Item{
		{ID: uuid.New(), MenuItemID: "m2", UnitPrice: money("2.00"), Quantity: 3},
	}}
	require.NoError(t, s.Save(second))

	loaded, err := s.Load()
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, "m2", loaded.Items[0].MenuItemID)
}

func TestSQLiteClear(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Save(cart.Snapshot{RestaurantID: "r1", Items: []cart.Item{
		{ID: uuid.New(), MenuItemID: "m1", UnitPrice: money("5.00"), Quantity: 1},
	}}))

	require.NoError(t, s.Clear())

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded.Items)
}

func TestSQLiteEmptyLoad(t *testing.T) {
	s := openStore(t)
	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded.Items)
	assert.Equal(t, "", loaded.RestaurantID)
}
