package stages

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxlane/voxlane/internal/classify"
	"github.com/voxlane/voxlane/internal/extraction"
	"github.com/voxlane/voxlane/internal/fetch"
	"github.com/voxlane/voxlane/internal/knowledge"
	"github.com/voxlane/voxlane/internal/telephony"
	"github.com/voxlane/voxlane/internal/types"
	"github.com/voxlane/voxlane/internal/voice"
)

func testWorkflow() types.Workflow {
	return types.Workflow{
		ID:          uuid.New(),
		TenantID:    "tenant-A",
		BusinessURL: "https://rosies-bakery.example.com",
		AgentName:   "Rosie's Bakery Agent",
		AreaCode:    "415",
	}
}

// --- classification ---

type stubClassifier struct {
	result *classify.Result
	err    error
}

func (c *stubClassifier) Classify(_ context.Context, _ string) (*classify.Result, error) {
	return c.result, c.err
}

func TestClassificationStage_Success(t *testing.T) {
	stage := NewClassificationStage(&stubClassifier{
		result: &classify.Result{Industry: "bakery", Confidence: 0.93},
	})

	res, err := stage.Execute(context.Background(), &Context{Workflow: testWorkflow()})
	require.NoError(t, err)

	got, ok := res.Payload.(*classify.Result)
	require.True(t, ok)
	assert.Equal(t, "bakery", got.Industry)
}

func TestClassificationStage_TransientFetchIsRetryable(t *testing.T) {
	stage := NewClassificationStage(&stubClassifier{
		err: &fetch.Error{URL: "https://rosies-bakery.example.com", Message: "connection refused", Transient: true},
	})

	_, err := stage.Execute(context.Background(), &Context{Workflow: testWorkflow()})

	var retryable *RetryableError
	require.ErrorAs(t, err, &retryable)
	assert.Equal(t, types.StageClassifying, retryable.Stage)
}

func TestClassificationStage_PermanentFetchIsFatal(t *testing.T) {
	stage := NewClassificationStage(&stubClassifier{
		err: &fetch.Error{URL: "https://rosies-bakery.example.com", Message: "not found", Transient: false},
	})

	_, err := stage.Execute(context.Background(), &Context{Workflow: testWorkflow()})

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Nil(t, fatal.Compensation)
}

func TestClassificationStage_NonHTMLIsFatal(t *testing.T) {
	stage := NewClassificationStage(&stubClassifier{
		err: &classify.NotHTMLError{URL: "https://rosies-bakery.example.com/menu.pdf", ContentType: "application/pdf"},
	})

	_, err := stage.Execute(context.Background(), &Context{Workflow: testWorkflow()})

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
}

func TestClassificationStage_UnknownErrorIsRetryable(t *testing.T) {
	stage := NewClassificationStage(&stubClassifier{err: fmt.Errorf("model returned malformed JSON")})

	_, err := stage.Execute(context.Background(), &Context{Workflow: testWorkflow()})

	var retryable *RetryableError
	require.ErrorAs(t, err, &retryable)
}

// --- extraction ---

type stubSource struct {
	name string
	snap *knowledge.Snapshot
	err  error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Extract(_ context.Context, _, _ string) (*knowledge.Snapshot, error) {
	return s.snap, s.err
}

func snapshotWith(category string, confidence float64, provenance string) *knowledge.Snapshot {
	snap := knowledge.NewEmptySnapshot()
	snap.Categories[category] = knowledge.CategoryData{
		Content:    "open 7am to 3pm",
		Confidence: confidence,
		Provenance: provenance,
	}
	return snap
}

func extractionContext() *Context {
	return &Context{
		Workflow:       testWorkflow(),
		Classification: &classify.Result{Industry: "bakery", Confidence: 0.93},
	}
}

func TestExtractionStage_MergesAllSources(t *testing.T) {
	crawler := snapshotWith("business_hours", 0.6, knowledge.ProvenanceCrawler)
	directory := snapshotWith("contact_information", 0.8, knowledge.ProvenanceDirectory)

	stage := NewExtractionStage([]extraction.Source{
		&stubSource{name: "crawler", snap: crawler},
		&stubSource{name: "business-directory", snap: directory},
	})

	res, err := stage.Execute(context.Background(), extractionContext())
	require.NoError(t, err)

	merged, ok := res.Payload.(*knowledge.Snapshot)
	require.True(t, ok)
	assert.True(t, merged.Complete(), "merged snapshot must contain every category")
	assert.False(t, merged.Categories["business_hours"].Empty())
	assert.False(t, merged.Categories["contact_information"].Empty())
}

func TestExtractionStage_HighestConfidenceWins(t *testing.T) {
	crawler := snapshotWith("business_hours", 0.9, knowledge.ProvenanceCrawler)
	directory := snapshotWith("business_hours", 0.4, knowledge.ProvenanceDirectory)

	stage := NewExtractionStage([]extraction.Source{
		&stubSource{name: "crawler", snap: crawler},
		&stubSource{name: "business-directory", snap: directory},
	})

	res, err := stage.Execute(context.Background(), extractionContext())
	require.NoError(t, err)

	merged := res.Payload.(*knowledge.Snapshot)
	assert.Equal(t, knowledge.ProvenanceCrawler, merged.Categories["business_hours"].Provenance)
	assert.InDelta(t, 0.9, merged.Categories["business_hours"].Confidence, 1e-9)
}

func TestExtractionStage_PartialFailureIsRetryable(t *testing.T) {
	stage := NewExtractionStage([]extraction.Source{
		&stubSource{name: "crawler", snap: snapshotWith("business_hours", 0.6, knowledge.ProvenanceCrawler)},
		&stubSource{name: "business-directory", err: fmt.Errorf("directory unavailable")},
	})

	_, err := stage.Execute(context.Background(), extractionContext())

	var retryable *RetryableError
	require.ErrorAs(t, err, &retryable)
	assert.Equal(t, types.StageExtracting, retryable.Stage)
}

func TestExtractionStage_TotalFailureIsFatal(t *testing.T) {
	stage := NewExtractionStage([]extraction.Source{
		&stubSource{name: "crawler", err: fmt.Errorf("crawl failed")},
		&stubSource{name: "business-directory", err: fmt.Errorf("directory unavailable")},
	})

	_, err := stage.Execute(context.Background(), extractionContext())

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
}

func TestExtractionStage_MissingClassificationIsFatal(t *testing.T) {
	stage := NewExtractionStage([]extraction.Source{
		&stubSource{name: "crawler", snap: knowledge.NewEmptySnapshot()},
	})

	_, err := stage.Execute(context.Background(), &Context{Workflow: testWorkflow()})

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
}

// --- deployment ---

type stubVoice struct {
	agentID   string
	createErr error
	deleteErr error

	created []string
	deleted []string
}

func (v *stubVoice) CreateProfile(_ context.Context, name, _ string, _ *knowledge.Snapshot) (string, error) {
	if v.createErr != nil {
		return "", v.createErr
	}
	v.created = append(v.created, name)
	return v.agentID, nil
}

func (v *stubVoice) DeleteProfile(_ context.Context, agentID string) error {
	v.deleted = append(v.deleted, agentID)
	return v.deleteErr
}

type stubPhone struct {
	number string
	err    error

	gotAgentID string
	gotPrefs   telephony.Preferences
}

func (p *stubPhone) ProvisionNumber(_ context.Context, agentID string, prefs telephony.Preferences) (string, error) {
	p.gotAgentID = agentID
	p.gotPrefs = prefs
	if p.err != nil {
		return "", p.err
	}
	return p.number, nil
}

func deploymentContext() *Context {
	return &Context{
		Workflow:       testWorkflow(),
		Classification: &classify.Result{Industry: "bakery", Confidence: 0.93},
		Snapshot:       snapshotWith("business_hours", 1.0, knowledge.ProvenanceUserVerified),
	}
}

func TestDeploymentStage_Success(t *testing.T) {
	v := &stubVoice{agentID: "agent-123"}
	p := &stubPhone{number: "+14155550100"}
	stage := NewDeploymentStage(v, p)

	res, err := stage.Execute(context.Background(), deploymentContext())
	require.NoError(t, err)

	result, ok := res.Payload.(*types.DeploymentResult)
	require.True(t, ok)
	assert.Equal(t, "agent-123", result.VoiceAgentID)
	assert.Equal(t, "+14155550100", result.PhoneNumber)
	assert.Equal(t, "agent-123", p.gotAgentID)
	assert.Equal(t, "415", p.gotPrefs.AreaCode)
	assert.Empty(t, v.deleted)
}

func TestDeploymentStage_PhoneFailureCompensatesProfile(t *testing.T) {
	v := &stubVoice{agentID: "agent-123"}
	p := &stubPhone{err: &telephony.APIError{StatusCode: 422, Message: "no inventory for area code"}}
	stage := NewDeploymentStage(v, p)

	_, err := stage.Execute(context.Background(), deploymentContext())

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Nil(t, fatal.Compensation)
	assert.Equal(t, []string{"agent-123"}, v.deleted, "profile must be rolled back")
}

func TestDeploymentStage_CompensationFailureNeverMasksCause(t *testing.T) {
	v := &stubVoice{
		agentID:   "agent-123",
		deleteErr: &voice.APIError{StatusCode: 403, Message: "forbidden"},
	}
	p := &stubPhone{err: &telephony.APIError{StatusCode: 422, Message: "no inventory"}}
	stage := NewDeploymentStage(v, p)

	_, err := stage.Execute(context.Background(), deploymentContext())

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Contains(t, fatal.Cause.Error(), "no inventory")
	var comp *CompensationError
	require.ErrorAs(t, fatal.Compensation, &comp)
	assert.Contains(t, comp.Error(), "forbidden")
}

func TestDeploymentStage_TransientVoiceFailureIsRetryable(t *testing.T) {
	v := &stubVoice{createErr: &voice.APIError{StatusCode: 503, Message: "overloaded"}}
	stage := NewDeploymentStage(v, &stubPhone{number: "+14155550100"})

	_, err := stage.Execute(context.Background(), deploymentContext())

	var retryable *RetryableError
	require.ErrorAs(t, err, &retryable)
	assert.Empty(t, v.deleted, "nothing to compensate when creation failed")
}

func TestDeploymentStage_MissingSnapshotIsFatal(t *testing.T) {
	stage := NewDeploymentStage(&stubVoice{agentID: "agent-123"}, &stubPhone{number: "+14155550100"})

	_, err := stage.Execute(context.Background(), &Context{Workflow: testWorkflow()})

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
}
