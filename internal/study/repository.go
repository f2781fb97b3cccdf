package study

import (
	"context"
	"fmt"

	"mentalytics/internal/store"
)

// Repository persists study records of one device on top of a store.Store.
type Repository interface {
	AppendConsent(ctx context.Context, rec ConsentRecord) (store.Document, error)
	AppendSurvey(ctx context.Context, rec SurveyRecord) (store.Document, error)
	LatestSurvey(ctx context.Context, deviceID string) (store.Document, error)
	AppendAgreement(ctx context.Context, rec AgreementRecord) (store.Document, error)
	SaveProfile(ctx context.Context, deviceID string, doc store.Document) error
	LoadProfile(ctx context.Context, deviceID string) (store.Document, error)
	ExportBundle(ctx context.Context, deviceID string) ([]byte, error)
	ExportLog(ctx context.Context, deviceID, name string) ([]byte, error)
}

type storeRepo struct {
	store store.Store
}

func NewRepository(s store.Store) Repository {
	return &storeRepo{store: s}
}

// appendLatest appends rec to the name log and mirrors the stored entry as
// the overwrite-style document read by exports.
func (r *storeRepo) appendLatest(ctx context.Context, deviceID, name string, rec any) (store.Document, error) {
	doc, err := toDocument(rec)
	if err != nil {
		return nil, err
	}
	stored, err := r.store.AppendJSONL(ctx, deviceID, name, doc)
	if err != nil {
		return nil, fmt.Errorf("append %s: %w", name, err)
	}
	if err := r.store.SaveJSON(ctx, deviceID, name, stored); err != nil {
		return nil, fmt.Errorf("save latest %s: %w", name, err)
	}
	return stored, nil
}

func (r *storeRepo) AppendConsent(ctx context.Context, rec ConsentRecord) (store.Document, error) {
	return r.appendLatest(ctx, rec.DeviceID, store.NameConsent, rec)
}

func (r *storeRepo) AppendSurvey(ctx context.Context, rec SurveyRecord) (store.Document, error) {
	return r.appendLatest(ctx, rec.DeviceID, store.NameSurvey, rec)
}

func (r *storeRepo) LatestSurvey(ctx context.Context, deviceID string) (store.Document, error) {
	doc, err := r.store.LoadLatestJSONL(ctx, deviceID, store.NameSurvey)
	if err != nil {
		return nil, fmt.Errorf("load survey: %w", err)
	}
	return doc, nil
}

func (r *storeRepo) AppendAgreement(ctx context.Context, rec AgreementRecord) (store.Document, error) {
	doc, err := toDocument(rec)
	if err != nil {
		return nil, err
	}
	stored, err := r.store.AppendJSONL(ctx, rec.DeviceID, store.NameAgreement, doc)
	if err != nil {
		return nil, fmt.Errorf("append agreement: %w", err)
	}
	return stored, nil
}

func (r *storeRepo) SaveProfile(ctx context.Context, deviceID string, doc store.Document) error {
	if err := r.store.SaveJSON(ctx, deviceID, store.NameProfile, doc); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (r *storeRepo) LoadProfile(ctx context.Context, deviceID string) (store.Document, error) {
	return r.store.LoadJSON(ctx, deviceID, store.NameProfile)
}

func (r *storeRepo) ExportBundle(ctx context.Context, deviceID string) ([]byte, error) {
	return store.ExportBundle(ctx, r.store, deviceID)
}

func (r *storeRepo) ExportLog(ctx context.Context, deviceID, name string) ([]byte, error) {
	return r.store.ExportJSONL(ctx, deviceID, name)
}
