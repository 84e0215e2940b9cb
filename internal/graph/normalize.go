package graph

import (
	"log/slog"

	"golang.org/x/text/unicode/norm"
)

// normalizeName returns the NFC form of a display name. SharePoint stores
// names as uploaded, so macOS clients leave NFD names behind; comparing and
// sorting them against NFC input would otherwise misbehave.
func normalizeName(name string) string {
	return norm.NFC.String(name)
}

// filterPackages removes OneNote packages and deleted tombstones. Neither is
// something a caller can browse into or transfer.
func filterPackages(items []Item, logger *slog.Logger) []Item {
	result := make([]Item, 0, len(items))

	for i := range items {
		if items[i].IsPackage || items[i].IsDeleted {
			logger.Debug("filtering out non-transferable item",
				slog.String("item_id", items[i].ID),
				slog.String("name", items[i].Name),
				slog.Bool("is_package", items[i].IsPackage),
				slog.Bool("is_deleted", items[i].IsDeleted),
			)

			continue
		}

		result = append(result, items[i])
	}

	if filtered := len(items) - len(result); filtered > 0 {
		logger.Info("filtered non-transferable items from listing",
			slog.Int("filtered_count", filtered),
			slog.Int("remaining_count", len(result)),
		)
	}

	return result
}
