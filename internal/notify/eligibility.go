package notify

import (
	"context"
	"fmt"

	"github.com/notifyrr/notifyrr/internal/catalog"
)

// Eligible decides whether a newly created item is a notification candidate
// for one subscriber. The cheap checks run first; the visibility query
// against the catalog is the expensive step and runs last.
func Eligible(ctx context.Context, cat catalog.Client, item *catalog.ItemSnapshot, sub Subscriber) (bool, error) {
	if item.Virtual {
		return false, nil
	}
	if !sub.Enabled || !sub.AnnounceOnAdd {
		return false, nil
	}
	if !sub.WantsCategory(item.Category) {
		return false, nil
	}

	visible, err := visibleToSubscriber(ctx, cat, sub.UserID, item.ID)
	if err != nil {
		return false, fmt.Errorf("visibility check for %s: %w", sub.Name, err)
	}
	return visible, nil
}

// visibleToSubscriber reports whether the item is reachable from any library
// view visible to the subscriber's catalog user.
func visibleToSubscriber(ctx context.Context, cat catalog.Client, userID, itemID string) (bool, error) {
	views, err := cat.VisibleViews(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("list views: %w", err)
	}

	for _, view := range views {
		refs, err := cat.ListItems(ctx, userID, view.ID, catalog.AllCategories, true)
		if err != nil {
			return false, fmt.Errorf("list items in view %s: %w", view.ID, err)
		}
		for _, ref := range refs {
			if ref.ID == itemID {
				return true, nil
			}
		}
	}
	return false, nil
}
