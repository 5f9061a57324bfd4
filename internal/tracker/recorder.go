package tracker

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"tinylinker/internal/domain"
	"tinylinker/internal/shortcode"
	"tinylinker/internal/storage"
)

// ResolveTargetValue extracts the attribution value for a redirect request.
// The raw query value is recorded as-is; it is classified against the link's
// configured targets only at reporting time, so a value configured after the
// click still attributes retroactively.
func ResolveTargetValue(link *domain.Link, query url.Values) string {
	if link.TargetParamName == "" {
		return ""
	}
	return query.Get(link.TargetParamName)
}

// Recorder persists click events against links.
type Recorder struct {
	repo storage.LinkRepository
	log  logrus.FieldLogger
}

func NewRecorder(repo storage.LinkRepository, logger logrus.FieldLogger) *Recorder {
	return &Recorder{
		repo: repo,
		log:  logger.WithField("component", "tracker"),
	}
}

// Record appends a click to the link and returns the updated document. The
// append is atomic; concurrent redirects on the same link all count.
func (r *Recorder) Record(ctx context.Context, link *domain.Link, query url.Values, clientAddr string, now time.Time) (*domain.Link, error) {
	clickID, err := shortcode.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate click id: %w", err)
	}

	click := domain.Click{
		ID:               clickID,
		InsertedAt:       now.UTC(),
		IPAddress:        clientAddr,
		TargetParamValue: ResolveTargetValue(link, query),
	}

	updated, err := r.repo.AppendClick(ctx, link.ID, click)
	if err != nil {
		return nil, fmt.Errorf("failed to record click for link %s: %w", link.ID, err)
	}

	r.log.WithFields(logrus.Fields{
		"link_id":      link.ID,
		"target_value": click.TargetParamValue,
	}).Debug("Click recorded")
	return updated, nil
}
