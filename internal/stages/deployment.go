package stages

import (
	"context"
	"fmt"
	"log"

	"github.com/voxlane/voxlane/internal/knowledge"
	"github.com/voxlane/voxlane/internal/telephony"
	"github.com/voxlane/voxlane/internal/types"
)

// VoiceProvisioner creates and deletes voice profiles.
type VoiceProvisioner interface {
	CreateProfile(ctx context.Context, name, industry string, snapshot *knowledge.Snapshot) (string, error)
	DeleteProfile(ctx context.Context, agentID string) error
}

// PhoneProvisioner acquires phone numbers for deployed agents.
type PhoneProvisioner interface {
	ProvisionNumber(ctx context.Context, agentID string, prefs telephony.Preferences) (string, error)
}

// DeploymentStage provisions the voice profile and phone number for a
// validated workflow. Provisioning is two-phase; if the phone number cannot
// be acquired, the already created voice profile is deleted before the error
// is reported so a retry starts from a clean slate.
type DeploymentStage struct {
	voice VoiceProvisioner
	phone PhoneProvisioner
}

// NewDeploymentStage creates the deployment executor.
func NewDeploymentStage(voice VoiceProvisioner, phone PhoneProvisioner) *DeploymentStage {
	return &DeploymentStage{voice: voice, phone: phone}
}

// Stage identifies this executor.
func (s *DeploymentStage) Stage() types.Stage { return types.StageDeploying }

// Execute provisions external resources and returns a DeploymentResult.
func (s *DeploymentStage) Execute(ctx context.Context, sc *Context) (*Result, error) {
	if sc.Snapshot == nil {
		return nil, &FatalError{Stage: s.Stage(), Cause: fmt.Errorf("missing validated knowledge snapshot")}
	}

	industry := ""
	if sc.Classification != nil {
		industry = sc.Classification.Industry
	}

	agentID, err := s.voice.CreateProfile(ctx, sc.Workflow.AgentName, industry, sc.Snapshot)
	if err != nil {
		return nil, s.classifyFailure(err, nil)
	}

	prefs := telephony.Preferences{AreaCode: sc.Workflow.AreaCode}
	phoneNumber, err := s.phone.ProvisionNumber(ctx, agentID, prefs)
	if err != nil {
		// Roll back the profile before reporting, so the workflow never
		// holds a half-deployed agent across attempts. The rollback is
		// best effort; its failure is recorded but never replaces the
		// provisioning error.
		var compensation error
		if derr := s.voice.DeleteProfile(context.WithoutCancel(ctx), agentID); derr != nil {
			compensation = &CompensationError{
				Stage:    s.Stage(),
				Resource: "voice profile " + agentID,
				Cause:    derr,
			}
			log.Printf("workflow %s: %v", sc.Workflow.ID, compensation)
		}
		return nil, s.classifyFailure(err, compensation)
	}

	return &Result{Payload: &types.DeploymentResult{
		VoiceAgentID: agentID,
		PhoneNumber:  phoneNumber,
	}}, nil
}

func (s *DeploymentStage) classifyFailure(err, compensation error) error {
	if ta, ok := err.(transientAware); ok && !ta.Transient() {
		return &FatalError{Stage: s.Stage(), Cause: err, Compensation: compensation}
	}
	// Network failures and 5xx responses from either provider are worth
	// another attempt.
	return &RetryableError{Stage: s.Stage(), Cause: err}
}
