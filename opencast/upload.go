package opencast

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/xsync"

	studio "github.com/elan-ev/opencast-studio-sub000"
	"github.com/elan-ev/opencast-studio-sub000/internal"
)

const (
	flavorDublinCore = "dublincore/episode"
	flavorACL        = "security/xacml+episode"
	flavorCutting    = "smil/cutting"
)

// ProgressFunc receives the fraction of all recording bytes sent so far.
type ProgressFunc func(ctx context.Context, progress float64)

type UploadRequest struct {
	Recordings []studio.Recording
	Title      string
	Presenter  string
	Start      *time.Duration
	End        *time.Duration
	Settings   studio.UploadSettings
	OnProgress ProgressFunc
}

// Upload builds a media package out of the recordings and metadata and
// submits it for processing. Request failures are reported as an Outcome;
// an error is returned only for failures outside of the request error
// taxonomy (a cancelled context, a broken template, etc).
func (c *Client) Upload(
	ctx context.Context,
	req UploadRequest,
) (_ Outcome, _err error) {
	logger.Debugf(ctx, "Upload: %d recordings, '%s'", len(req.Recordings), req.Title)
	defer func() { logger.Debugf(ctx, "/Upload: %v", _err) }()

	if _, err := c.RefreshConnection(ctx); err != nil {
		return OutcomeUnknownError, fmt.Errorf("unable to refresh the connection: %w", err)
	}
	if state := c.State(ctx); state != ConnectionStateLoggedIn {
		logger.Debugf(ctx, "not uploading, the connection state is %s", state)
		return outcomeForState(ctx, state), nil
	}

	me := c.Me(ctx)
	internal.Assert(ctx, me != nil, "logged in, but no identity")

	err := c.upload(ctx, req, me, c.LTI(ctx))
	if err == nil {
		return OutcomeSuccess, nil
	}
	state, ok := ConnectionStateForError(err)
	if !ok {
		return OutcomeUnknownError, err
	}
	logger.Errorf(ctx, "the upload failed: %v", err)
	return outcomeForState(ctx, state), nil
}

func outcomeForState(
	ctx context.Context,
	state ConnectionState,
) Outcome {
	switch state {
	case ConnectionStateNetworkError:
		return OutcomeNetworkError
	case ConnectionStateIncorrectLogin, ConnectionStateConnected:
		return OutcomeNotAuthorized
	case ConnectionStateInvalidResponse:
		return OutcomeUnexpectedResponse
	case ConnectionStateUnconfigured, ConnectionStateResponseNotOK:
		return OutcomeUnknownError
	}
	internal.Unreachable(ctx, "no upload outcome for connection state %s", state)
	return OutcomeUnknownError
}

func (c *Client) upload(
	ctx context.Context,
	req UploadRequest,
	me *Me,
	lti LTI,
) error {
	presenter := req.Presenter
	if presenter == "" {
		presenter = me.User.Name
	}
	seriesID := req.Settings.SeriesID
	if seriesID == "" {
		seriesID = lti.ContextID()
	}
	dcc, err := RenderDCC(req.Settings.DCCTemplate, DCCTemplateData{
		Created:   c.now().UTC().Format(time.RFC3339),
		Title:     req.Title,
		Presenter: presenter,
		SeriesID:  seriesID,
	})
	if err != nil {
		return err
	}

	var acl string
	if req.Settings.ACL.Enabled() {
		acl, err = RenderACL(req.Settings.ACL.Template, NewACLTemplateData(me))
		if err != nil {
			return err
		}
	}

	var cutting string
	if req.Start != nil || req.End != nil {
		cutting, err = RenderCutting(req.Start, req.End)
		if err != nil {
			return err
		}
	}
	logger.Tracef(ctx, "dcc: %s\nacl: %s\ncutting: %s", dcc, acl, cutting)

	mediaPackage, err := c.getText(ctx, "createMediaPackage", "ingest/createMediaPackage")
	if err != nil {
		return err
	}

	mediaPackage, err = c.postForm(ctx, "addDCCatalog", "ingest/addDCCatalog", url.Values{
		"mediaPackage": {mediaPackage},
		"dublinCore":   {dcc},
		"flavor":       {flavorDublinCore},
	})
	if err != nil {
		return err
	}

	if acl != "" {
		mediaPackage, err = c.postMultipart(ctx, "addAttachment", "ingest/addAttachment", []formField{
			{Name: "mediaPackage", Value: mediaPackage},
			{Name: "flavor", Value: flavorACL},
		}, formFile{
			FieldName:   "BODY",
			FileName:    "acl.xml",
			ContentType: "text/xml",
			Data:        []byte(acl),
		}, nil)
		if err != nil {
			return err
		}
	}

	mediaPackage, err = c.addTracks(ctx, mediaPackage, req)
	if err != nil {
		return err
	}

	if cutting != "" {
		mediaPackage, err = c.postMultipart(ctx, "addCatalog", "ingest/addCatalog", []formField{
			{Name: "mediaPackage", Value: mediaPackage},
			{Name: "flavor", Value: flavorCutting},
		}, formFile{
			FieldName:   "BODY",
			FileName:    "cutting.smil",
			ContentType: "application/smil+xml",
			Data:        []byte(cutting),
		}, nil)
		if err != nil {
			return err
		}
	}

	ingestPath := "ingest/ingest"
	if req.Settings.WorkflowID != "" {
		ingestPath += "/" + url.PathEscape(req.Settings.WorkflowID)
	}
	_, err = c.postForm(ctx, "ingest", ingestPath, url.Values{
		"mediaPackage": {mediaPackage},
	})
	return err
}

func (c *Client) addTracks(
	ctx context.Context,
	mediaPackage string,
	req UploadRequest,
) (string, error) {
	tracker := &progressTracker{onProgress: req.OnProgress}
	for _, rec := range req.Recordings {
		tracker.total += rec.Size()
	}

	for idx, rec := range req.Recordings {
		logger.Tracef(ctx, "uploading recording #%d: %s", idx, spew.Sdump(rec.DeviceType, rec.MimeType, rec.Size()))
		var err error
		mediaPackage, err = c.postMultipart(ctx, "addTrack", "ingest/addTrack", []formField{
			{Name: "mediaPackage", Value: mediaPackage},
			{Name: "flavor", Value: rec.DeviceType.Flavor()},
			{Name: "tags", Value: ""},
		}, formFile{
			FieldName:   "BODY",
			FileName:    rec.FileName(req.Title),
			ContentType: rec.MimeType,
			Data:        rec.Media,
		}, func(sent int64) {
			tracker.Report(ctx, sent)
		})
		if err != nil {
			return "", err
		}
		tracker.Done(ctx, rec.Size())
	}
	return mediaPackage, nil
}

// progressTracker turns per-track byte counts into a monotonic overall
// fraction. onProgress is called under the lock, so the reports never
// overtake each other.
type progressTracker struct {
	locker     xsync.Mutex
	onProgress ProgressFunc
	total      int64
	finished   int64
	reported   float64
}

func (t *progressTracker) Report(ctx context.Context, sentOfCurrent int64) {
	t.report(ctx, func() int64 { return t.finished + sentOfCurrent })
}

func (t *progressTracker) Done(ctx context.Context, size int64) {
	t.report(ctx, func() int64 {
		t.finished += size
		return t.finished
	})
}

func (t *progressTracker) report(ctx context.Context, sentFn func() int64) {
	if t.onProgress == nil || t.total <= 0 {
		return
	}
	t.locker.Do(ctx, func() {
		progress := min(float64(sentFn())/float64(t.total), 1)
		if progress <= t.reported {
			return
		}
		t.reported = progress
		t.onProgress(ctx, progress)
	})
}
