package datastore

import (
	"testing"
	"time"

	"codedrop/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestFoldAvailability(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	batches := []models.CodeBatch{
		{
			Platform:   models.PlatformIOS,
			TotalCodes: 100,
			UsedCodes:  40,
			AppStoreID: "123456",
		},
		{
			Platform:   models.PlatformIOS,
			TotalCodes: 50,
			UsedCodes:  0,
			ExpiresAt:  &future,
		},
		{
			// expired, contributes nothing
			Platform:   models.PlatformAndroid,
			TotalCodes: 100,
			UsedCodes:  10,
			ExpiresAt:  &past,
		},
		{
			// drained, still reports the platform as known
			Platform:   models.PlatformSteam,
			TotalCodes: 30,
			UsedCodes:  30,
			SteamAppID: "730",
		},
		{
			// reserved rows are not public availability
			Platform:      models.PlatformWindows,
			TotalCodes:    20,
			ReservedCodes: 5,
			UsedCodes:     12,
		},
	}

	availability := FoldAvailability(batches, now)

	ios := availability[models.PlatformIOS]
	assert.True(t, ios.Available)
	assert.Equal(t, 110, ios.Count)
	assert.Equal(t, "123456", ios.AppStoreID)

	android := availability[models.PlatformAndroid]
	assert.False(t, android.Available)
	assert.Equal(t, 0, android.Count)

	steam := availability[models.PlatformSteam]
	assert.False(t, steam.Available)
	assert.Equal(t, 0, steam.Count)

	windows := availability[models.PlatformWindows]
	assert.True(t, windows.Available)
	assert.Equal(t, 3, windows.Count)

	_, known := availability[models.PlatformXbox]
	assert.False(t, known)
}

func TestFoldAvailabilityStoreIDsFromFirstBatch(t *testing.T) {
	now := time.Now()
	batches := []models.CodeBatch{
		{Platform: models.PlatformAndroid, TotalCodes: 10, PlayStorePackage: "com.example.one"},
		{Platform: models.PlatformAndroid, TotalCodes: 10, PlayStorePackage: "com.example.two"},
	}

	availability := FoldAvailability(batches, now)
	assert.Equal(t, "com.example.one", availability[models.PlatformAndroid].PlayStorePackage)
}
