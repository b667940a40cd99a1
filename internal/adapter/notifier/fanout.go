package notifier

import (
	"context"
	"errors"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/ports"
)

// Fanout delivers each notification to every configured channel. A failing
// channel does not stop the others; all errors are joined.
type Fanout []ports.Notifier

func (f Fanout) NotifyCampaignUnderReview(ctx context.Context, note ports.CampaignReviewNotification) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.NotifyCampaignUnderReview(ctx, note); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
