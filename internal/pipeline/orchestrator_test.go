package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"CatalogSync/internal/handoff"
	"CatalogSync/internal/logger"
	"CatalogSync/internal/model"
	"CatalogSync/internal/notifier"
	"CatalogSync/internal/staging"
	"CatalogSync/internal/supplier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	staged staging.Staged
	err    error
	got    []model.PricedEntry
	name   string
}

func (f *fakeUploader) Name() string { return "fake" }

func (f *fakeUploader) Stage(_ context.Context, p staging.Payload) (staging.Staged, error) {
	f.name = p.Name
	if err := json.Unmarshal(p.Data, &f.got); err != nil {
		return staging.Staged{}, err
	}
	return f.staged, f.err
}

type fakeHandoff struct {
	locations []string
	counts    []int
	payloads  [][]model.PricedEntry
	err       error
}

func (f *fakeHandoff) NotifyLocation(_ context.Context, location string, count int) (handoff.Ack, error) {
	f.locations = append(f.locations, location)
	f.counts = append(f.counts, count)
	return handoff.Ack{}, f.err
}

func (f *fakeHandoff) NotifyPayload(_ context.Context, entries []model.PricedEntry) (handoff.Ack, error) {
	f.payloads = append(f.payloads, entries)
	return handoff.Ack{}, f.err
}

// fakeNotifier records calls and fails every one of them.
type fakeNotifier struct {
	started []int
	errors  []string
}

var errSMTPDown = errors.New("smtp down")

func (f *fakeNotifier) NotifyStarted(_ context.Context, count int) error {
	f.started = append(f.started, count)
	return errSMTPDown
}

func (f *fakeNotifier) NotifyError(_ context.Context, title string, _ error, _ string) error {
	f.errors = append(f.errors, title)
	return errSMTPDown
}

func (f *fakeNotifier) Send(context.Context, notifier.Message) (notifier.Summary, error) {
	return notifier.Summary{}, errSMTPDown
}

func twoProducts() []model.Product {
	return []model.Product{
		{PartNumber: "A-1", CADmap: 49.99, Price: 20, Available: 5},
		{PartNumber: "B-2", USDmap: 10, Available: 0, Discontinued: true},
	}
}

func TestRunOnce_EndToEnd(t *testing.T) {
	fetcher := &supplier.MockFetcher{Products: twoProducts()}
	up := &fakeUploader{staged: staging.Staged{Location: "https://cdn.example.com/priced.json"}}
	ho := &fakeHandoff{}
	nt := &fakeNotifier{}

	o := New(fetcher, up, ho, nt, Options{Channel: "Online Store"}, logger.Nop())
	res, err := o.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Count)
	assert.Equal(t, model.StageDone, res.Stage)
	assert.Equal(t, model.RunSuccess, res.Status)
	require.NotNil(t, res.Location)
	assert.Equal(t, "https://cdn.example.com/priced.json", *res.Location)
	assert.Nil(t, res.StorageKey)
	assert.NotEmpty(t, res.RunID)
	assert.Empty(t, res.Failures)

	require.Len(t, up.got, 2)
	assert.Equal(t, "A-1", up.got[0].SKU)
	assert.Equal(t, "B-2", up.got[1].SKU)
	assert.False(t, up.got[1].IsActive)
	assert.Equal(t, "priced_catalog.json", up.name)

	assert.Equal(t, []string{"https://cdn.example.com/priced.json"}, ho.locations)
	assert.Equal(t, []int{2}, ho.counts)
	assert.Empty(t, ho.payloads)

	assert.Equal(t, []int{2}, nt.started, "start notification is attempted even though it fails")
	assert.Empty(t, nt.errors)
}

func TestRunOnce_StorageKeyReported(t *testing.T) {
	up := &fakeUploader{staged: staging.Staged{Location: "https://s3/x", Key: "pricing_data/x.json"}}
	o := New(&supplier.MockFetcher{Products: twoProducts()}, up, &fakeHandoff{}, nil, Options{}, logger.Nop())

	res, err := o.RunOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.StorageKey)
	assert.Equal(t, "pricing_data/x.json", *res.StorageKey)
}

func TestRunOnce_StorageKeyKeptWhenPresignFails(t *testing.T) {
	up := &fakeUploader{
		staged: staging.Staged{Key: "pricing_data/x.json"},
		err:    fmt.Errorf("%w: presign refused", model.ErrStaging),
	}
	ho := &fakeHandoff{}
	o := New(&supplier.MockFetcher{Products: twoProducts()}, up, ho, nil, Options{}, logger.Nop())

	res, err := o.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.RunDegraded, res.Status)
	assert.Nil(t, res.Location)
	require.NotNil(t, res.StorageKey)
	assert.Equal(t, "pricing_data/x.json", *res.StorageKey)
	assert.Empty(t, ho.locations)
}

func TestRunOnce_StagingFailure(t *testing.T) {
	stagingErr := errors.New("upload refused")

	tests := []struct {
		name         string
		fallback     bool
		wantStage    model.Stage
		wantPayloads int
	}{
		{"handoff skipped", false, model.StageStaging, 0},
		{"direct payload fallback", true, model.StageDone, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &fakeUploader{err: stagingErr}
			ho := &fakeHandoff{}
			nt := &fakeNotifier{}
			o := New(&supplier.MockFetcher{Products: twoProducts()}, up, ho, nt, Options{DirectPayloadFallback: tt.fallback}, logger.Nop())

			res, err := o.RunOnce(context.Background())
			require.NoError(t, err)
			assert.Nil(t, res.Location)
			assert.Equal(t, tt.wantStage, res.Stage)
			assert.Equal(t, model.RunDegraded, res.Status)
			assert.Equal(t, 2, res.Count)
			require.NotEmpty(t, res.Failures)
			assert.Equal(t, model.StageStaging, res.Failures[0].Stage)

			assert.Empty(t, ho.locations)
			assert.Len(t, ho.payloads, tt.wantPayloads)
			assert.Equal(t, []string{"Staging failed"}, nt.errors)
		})
	}
}

func TestRunOnce_HandoffFailureStillDone(t *testing.T) {
	up := &fakeUploader{staged: staging.Staged{Location: "https://cdn/x.json"}}
	ho := &fakeHandoff{err: errors.New("platform 503")}
	nt := &fakeNotifier{}
	o := New(&supplier.MockFetcher{Products: twoProducts()}, up, ho, nt, Options{}, logger.Nop())

	res, err := o.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.StageDone, res.Stage)
	assert.Equal(t, model.RunDegraded, res.Status)
	require.NotNil(t, res.Location)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, model.StageHandingOff, res.Failures[0].Stage)
	assert.Equal(t, []string{"Bulk upload handoff failed"}, nt.errors)
}

func TestRunOnce_FetchFailureAborts(t *testing.T) {
	fetchErr := &model.VendorError{Errors: json.RawMessage(`["down"]`)}
	up := &fakeUploader{}
	ho := &fakeHandoff{}
	nt := &fakeNotifier{}
	o := New(&supplier.MockFetcher{Err: fetchErr}, up, ho, nt, Options{}, logger.Nop())

	res, err := o.RunOnce(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrVendor))
	stage, ok := AbortedStage(err)
	require.True(t, ok)
	assert.Equal(t, model.StageFetching, stage)

	require.NotNil(t, res)
	assert.Equal(t, model.RunFailed, res.Status)
	assert.Equal(t, model.StageFetching, res.Stage)
	assert.Nil(t, res.Location)
	assert.Empty(t, nt.started)
	assert.Equal(t, []string{"Catalog fetch failed"}, nt.errors)
	assert.Nil(t, up.got)
	assert.Empty(t, ho.locations)
}

func TestRunOnce_DataContractAborts(t *testing.T) {
	products := []model.Product{{PartNumber: "A-1"}, {Price: 3}}
	nt := &fakeNotifier{}
	o := New(&supplier.MockFetcher{Products: products}, &fakeUploader{}, &fakeHandoff{}, nt, Options{}, logger.Nop())

	res, err := o.RunOnce(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrDataContract))
	assert.Equal(t, model.StagePricing, res.Stage)
	assert.Equal(t, model.RunFailed, res.Status)
	assert.Equal(t, []string{"Pricing failed"}, nt.errors)
}
