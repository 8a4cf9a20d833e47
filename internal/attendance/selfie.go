package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"satpam/internal/faceclient"
	"satpam/internal/metrics"
	"satpam/internal/queue"
)

// Selfie check outcomes.
const (
	SelfiePassed = "passed"
	SelfieFailed = "failed"
	SelfieError  = "error"
)

// MinFaceScore is the detector confidence a selfie needs to pass.
const MinFaceScore = 0.5

// FaceDetector locates faces in an image URL.
type FaceDetector interface {
	Detect(ctx context.Context, imageURL string) (faceclient.Detection, error)
}

// SelfieStore loads reports and records verdicts.
type SelfieStore interface {
	GetReport(ctx context.Context, id string) (Report, error)
	SaveSelfieCheck(ctx context.Context, c SelfieCheck) error
}

// SelfieChecker verifies that a report's evidence photo shows a face.
type SelfieChecker struct {
	store SelfieStore
	face  FaceDetector
	log   *zap.Logger
}

// NewSelfieChecker wires a checker.
func NewSelfieChecker(store SelfieStore, face FaceDetector, log *zap.Logger) *SelfieChecker {
	if log == nil {
		log = zap.NewNop()
	}
	return &SelfieChecker{store: store, face: face, log: log}
}

// Check runs detection for one report and stores the verdict. A detector
// failure is stored as an "error" verdict; only store failures are returned.
func (s *SelfieChecker) Check(ctx context.Context, reportID string) (SelfieCheck, error) {
	rep, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return SelfieCheck{}, fmt.Errorf("load report %s: %w", reportID, err)
	}

	check := SelfieCheck{ReportID: rep.ID}
	det, err := s.face.Detect(ctx, rep.EvidenceURL)
	switch {
	case errors.Is(err, faceclient.ErrNoFace):
		check.Outcome = SelfieFailed
		check.Detail = err.Error()
	case err != nil:
		check.Outcome = SelfieError
		check.Detail = err.Error()
	default:
		score := det.Score
		check.FacesDetected = det.FacesDetected
		check.Score = &score
		if det.FacesDetected >= 1 && det.Score >= MinFaceScore {
			check.Outcome = SelfiePassed
		} else {
			check.Outcome = SelfieFailed
			check.Detail = fmt.Sprintf("face score %.2f below %.2f", det.Score, MinFaceScore)
		}
	}

	if err := s.store.SaveSelfieCheck(ctx, check); err != nil {
		return check, fmt.Errorf("save selfie check: %w", err)
	}
	metrics.SelfieChecks.WithLabelValues(check.Outcome).Inc()
	s.log.Info("selfie checked",
		zap.String("report_id", check.ReportID),
		zap.String("outcome", check.Outcome),
		zap.Int("faces", check.FacesDetected))
	return check, nil
}

// Run consumes report.submitted messages from q until ctx is done and checks
// each report's selfie. Failures are logged and the loop moves on.
func (s *SelfieChecker) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	for msg := range messages {
		if msg.Type != queue.TypeReportSubmitted {
			s.log.Debug("ignoring message", zap.String("type", msg.Type))
			continue
		}
		s.log.Debug("report queued for selfie check",
			zap.String("report_id", msg.Subject),
			zap.Duration("queue_delay", msg.Age(time.Now())))
		if _, err := s.Check(ctx, msg.Subject); err != nil {
			s.log.Error("selfie check failed", zap.String("report_id", msg.Subject), zap.Error(err))
		}
	}
	return ctx.Err()
}
