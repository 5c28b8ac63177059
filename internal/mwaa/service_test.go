package mwaa

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmwaa "github.com/aws/aws-sdk-go-v2/service/mwaa"
	"github.com/aws/aws-sdk-go-v2/service/mwaa/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airbridge-project/airbridge/internal/airflow"
	"github.com/airbridge-project/airbridge/internal/core"
	"github.com/airbridge-project/airbridge/internal/guard"
)

// fakeControlPlane records calls and plays back configured responses.
type fakeControlPlane struct {
	listOut   *awsmwaa.ListEnvironmentsOutput
	listErr   error
	getOut    map[string]*awsmwaa.GetEnvironmentOutput
	getErr    map[string]error
	createOut *awsmwaa.CreateEnvironmentOutput
	createErr error
	updateOut *awsmwaa.UpdateEnvironmentOutput
	deleteErr error
	cliOut    *awsmwaa.CreateCliTokenOutput
	webOut    *awsmwaa.CreateWebLoginTokenOutput

	createCalls []*awsmwaa.CreateEnvironmentInput
	updateCalls []*awsmwaa.UpdateEnvironmentInput
	deleteCalls []string
	listCalls   []*awsmwaa.ListEnvironmentsInput
	cliCalls    int
}

func (f *fakeControlPlane) ListEnvironments(_ context.Context, in *awsmwaa.ListEnvironmentsInput, _ ...func(*awsmwaa.Options)) (*awsmwaa.ListEnvironmentsOutput, error) {
	f.listCalls = append(f.listCalls, in)
	return f.listOut, f.listErr
}

func (f *fakeControlPlane) GetEnvironment(_ context.Context, in *awsmwaa.GetEnvironmentInput, _ ...func(*awsmwaa.Options)) (*awsmwaa.GetEnvironmentOutput, error) {
	name := aws.ToString(in.Name)
	if err, ok := f.getErr[name]; ok {
		return nil, err
	}
	if out, ok := f.getOut[name]; ok {
		return out, nil
	}
	return nil, &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "no such environment"}
}

func (f *fakeControlPlane) CreateEnvironment(_ context.Context, in *awsmwaa.CreateEnvironmentInput, _ ...func(*awsmwaa.Options)) (*awsmwaa.CreateEnvironmentOutput, error) {
	f.createCalls = append(f.createCalls, in)
	return f.createOut, f.createErr
}

func (f *fakeControlPlane) UpdateEnvironment(_ context.Context, in *awsmwaa.UpdateEnvironmentInput, _ ...func(*awsmwaa.Options)) (*awsmwaa.UpdateEnvironmentOutput, error) {
	f.updateCalls = append(f.updateCalls, in)
	return f.updateOut, nil
}

func (f *fakeControlPlane) DeleteEnvironment(_ context.Context, in *awsmwaa.DeleteEnvironmentInput, _ ...func(*awsmwaa.Options)) (*awsmwaa.DeleteEnvironmentOutput, error) {
	f.deleteCalls = append(f.deleteCalls, aws.ToString(in.Name))
	return &awsmwaa.DeleteEnvironmentOutput{}, f.deleteErr
}

func (f *fakeControlPlane) CreateCliToken(_ context.Context, _ *awsmwaa.CreateCliTokenInput, _ ...func(*awsmwaa.Options)) (*awsmwaa.CreateCliTokenOutput, error) {
	f.cliCalls++
	if f.cliOut != nil {
		return f.cliOut, nil
	}
	return nil, &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "no such environment"}
}

func (f *fakeControlPlane) CreateWebLoginToken(_ context.Context, _ *awsmwaa.CreateWebLoginTokenInput, _ ...func(*awsmwaa.Options)) (*awsmwaa.CreateWebLoginTokenOutput, error) {
	return f.webOut, nil
}

func newTestService(cp ControlPlane, readOnly bool) *Service {
	return NewService(cp, guard.NewGate(readOnly), zerolog.Nop())
}

func TestReadOnlyGateBlocksMutations(t *testing.T) {
	cp := &fakeControlPlane{}
	svc := newTestService(cp, true)
	ctx := context.Background()

	results := []core.Result{
		svc.CreateEnvironment(ctx, map[string]any{"name": "prod"}),
		svc.UpdateEnvironment(ctx, map[string]any{"name": "prod"}),
		svc.DeleteEnvironment(ctx, "prod"),
		svc.TriggerDagRun(ctx, "prod", "etl", "", nil, ""),
	}
	for _, res := range results {
		require.True(t, res.IsError())
		assert.Equal(t, core.KindPolicy, res.Err.Kind)
		assert.Equal(t, "ReadOnlyMode", res.Err.Code)
	}
	assert.Empty(t, cp.createCalls, "create must not reach the control plane")
	assert.Empty(t, cp.updateCalls, "update must not reach the control plane")
	assert.Empty(t, cp.deleteCalls, "delete must not reach the control plane")
	assert.Zero(t, cp.cliCalls, "trigger must not mint a token")
}

func TestCreateEnvironmentMapsParameters(t *testing.T) {
	cp := &fakeControlPlane{createOut: &awsmwaa.CreateEnvironmentOutput{Arn: aws.String("arn:aws:airflow:us-east-1:123456789012:environment/prod")}}
	svc := newTestService(cp, false)

	res := svc.CreateEnvironment(context.Background(), map[string]any{
		"name":               "prod",
		"dag_s3_path":        "dags",
		"execution_role_arn": "arn:aws:iam::123456789012:role/mwaa-exec",
		"source_bucket_arn":  "arn:aws:s3:::prod-dags",
		"network_configuration": map[string]any{
			"subnet_ids":         []any{"subnet-1", "subnet-2"},
			"security_group_ids": []any{"sg-1"},
		},
		"max_workers":       float64(10),
		"environment_class": "mw1.medium",
		"tags":              map[string]any{"team": "data"},
		"logging_configuration": map[string]any{
			"task_logs": map[string]any{"enabled": true, "log_level": "INFO"},
		},
	})

	require.False(t, res.IsError(), "unexpected error: %+v", res.Err)
	assert.Equal(t, "arn:aws:airflow:us-east-1:123456789012:environment/prod", res.Get("Arn"))

	require.Len(t, cp.createCalls, 1)
	in := cp.createCalls[0]
	assert.Equal(t, "prod", aws.ToString(in.Name))
	assert.Equal(t, "dags", aws.ToString(in.DagS3Path))
	assert.Equal(t, []string{"subnet-1", "subnet-2"}, in.NetworkConfiguration.SubnetIds)
	assert.Equal(t, []string{"sg-1"}, in.NetworkConfiguration.SecurityGroupIds)
	assert.Equal(t, int32(10), aws.ToInt32(in.MaxWorkers))
	assert.Equal(t, "mw1.medium", aws.ToString(in.EnvironmentClass))
	assert.Equal(t, map[string]string{"team": "data"}, in.Tags)
	require.NotNil(t, in.LoggingConfiguration)
	require.NotNil(t, in.LoggingConfiguration.TaskLogs)
	assert.True(t, aws.ToBool(in.LoggingConfiguration.TaskLogs.Enabled))
	assert.Equal(t, types.LoggingLevelInfo, in.LoggingConfiguration.TaskLogs.LogLevel)

	// Omitted optionals stay unset so the SDK leaves them out of the request.
	assert.Nil(t, in.MinWorkers)
	assert.Nil(t, in.AirflowVersion)
	assert.Nil(t, in.WeeklyMaintenanceWindowStart)
}

func TestCreateEnvironmentMissingRequired(t *testing.T) {
	svc := newTestService(&fakeControlPlane{}, false)
	res := svc.CreateEnvironment(context.Background(), map[string]any{"name": "prod"})
	require.True(t, res.IsError())
	assert.Equal(t, core.KindDecode, res.Err.Kind)
	assert.Equal(t, "InvalidParameter", res.Err.Code)
}

func TestUpdateEnvironmentSecurityGroupsOnly(t *testing.T) {
	cp := &fakeControlPlane{updateOut: &awsmwaa.UpdateEnvironmentOutput{Arn: aws.String("arn:env")}}
	svc := newTestService(cp, false)

	res := svc.UpdateEnvironment(context.Background(), map[string]any{
		"name": "prod",
		"network_configuration": map[string]any{
			"security_group_ids": []any{"sg-new"},
		},
	})
	require.False(t, res.IsError())
	require.Len(t, cp.updateCalls, 1)
	assert.Equal(t, []string{"sg-new"}, cp.updateCalls[0].NetworkConfiguration.SecurityGroupIds)
}

func TestListEnvironmentsDegradesOnEnrichmentFailure(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cp := &fakeControlPlane{
		listOut: &awsmwaa.ListEnvironmentsOutput{Environments: []string{"healthy", "broken"}},
		getOut: map[string]*awsmwaa.GetEnvironmentOutput{
			"healthy": {Environment: &types.Environment{
				Name:      aws.String("healthy"),
				Status:    types.EnvironmentStatusAvailable,
				CreatedAt: aws.Time(created),
			}},
		},
		getErr: map[string]error{
			"broken": &smithy.GenericAPIError{Code: "InternalServerException", Message: "backend unavailable"},
		},
	}
	svc := newTestService(cp, true)

	res := svc.ListEnvironments(context.Background(), 0)
	require.False(t, res.IsError())

	envs, ok := res.Get("Environments").([]map[string]any)
	require.True(t, ok)
	require.Len(t, envs, 2)

	assert.Equal(t, "healthy", envs[0]["Name"])
	assert.Equal(t, "AVAILABLE", envs[0]["Status"])
	assert.Equal(t, "2024-03-01T12:00:00Z", envs[0]["CreatedAt"])

	assert.Equal(t, "broken", envs[1]["Name"])
	assert.Equal(t, "ERROR", envs[1]["Status"])
	assert.Contains(t, envs[1]["Error"], "backend unavailable")

	// No max requested means the control plane's own default page size.
	require.Len(t, cp.listCalls, 1)
	assert.Nil(t, cp.listCalls[0].MaxResults)
}

func TestListEnvironmentsMaxResultsCapped(t *testing.T) {
	cp := &fakeControlPlane{listOut: &awsmwaa.ListEnvironmentsOutput{}}
	svc := newTestService(cp, true)

	res := svc.ListEnvironments(context.Background(), 100)
	require.False(t, res.IsError())
	require.Len(t, cp.listCalls, 1)
	assert.Equal(t, int32(25), aws.ToInt32(cp.listCalls[0].MaxResults))

	res = svc.ListEnvironments(context.Background(), 5)
	require.False(t, res.IsError())
	require.Len(t, cp.listCalls, 2)
	assert.Equal(t, int32(5), aws.ToInt32(cp.listCalls[1].MaxResults))
}

func TestListEnvironmentsNextToken(t *testing.T) {
	cp := &fakeControlPlane{listOut: &awsmwaa.ListEnvironmentsOutput{
		Environments: []string{},
		NextToken:    aws.String("page-2"),
	}}
	svc := newTestService(cp, true)

	res := svc.ListEnvironments(context.Background(), 10)
	require.False(t, res.IsError())
	assert.Equal(t, "page-2", res.Get("NextToken"))

	cp.listOut = &awsmwaa.ListEnvironmentsOutput{}
	res = svc.ListEnvironments(context.Background(), 10)
	require.False(t, res.IsError())
	assert.NotContains(t, res.Payload, "NextToken")
}

func TestGetEnvironmentNotFoundKeepsErrorCode(t *testing.T) {
	svc := newTestService(&fakeControlPlane{}, true)
	res := svc.GetEnvironment(context.Background(), "missing")
	require.True(t, res.IsError())
	assert.Equal(t, core.KindRemote, res.Err.Kind)
	assert.Equal(t, "ResourceNotFoundException", res.Err.Code)
	assert.Equal(t, "no such environment", res.Err.Message)
}

func TestGetEnvironmentDetailNormalization(t *testing.T) {
	created := time.Date(2023, 11, 5, 8, 30, 0, 0, time.UTC)
	updated := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	cp := &fakeControlPlane{getOut: map[string]*awsmwaa.GetEnvironmentOutput{
		"prod": {Environment: &types.Environment{
			Name:             aws.String("prod"),
			Status:           types.EnvironmentStatusUpdating,
			Arn:              aws.String("arn:env"),
			AirflowVersion:   aws.String("2.10.1"),
			CreatedAt:        aws.Time(created),
			MaxWorkers:       aws.Int32(8),
			ExecutionRoleArn: aws.String("arn:role"),
			NetworkConfiguration: &types.NetworkConfiguration{
				SubnetIds:        []string{"subnet-1"},
				SecurityGroupIds: []string{"sg-1"},
			},
			LastUpdate: &types.LastUpdate{
				Status:    types.UpdateStatusFailed,
				CreatedAt: aws.Time(updated),
				Error: &types.UpdateError{
					ErrorCode:    aws.String("VALIDATION_ERROR"),
					ErrorMessage: aws.String("subnet unreachable"),
				},
			},
		}},
	}}
	svc := newTestService(cp, true)

	res := svc.GetEnvironment(context.Background(), "prod")
	require.False(t, res.IsError())

	env, ok := res.Get("Environment").(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "prod", env["Name"])
	assert.Equal(t, "UPDATING", env["Status"])
	assert.Equal(t, "2023-11-05T08:30:00Z", env["CreatedAt"])
	assert.Equal(t, int32(8), env["MaxWorkers"])
	assert.NotContains(t, env, "WebserverUrl")

	update, ok := env["LastUpdate"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "FAILED", update["Status"])
	assert.Equal(t, "2024-01-02T03:04:05Z", update["CreatedAt"])
	updateErr, ok := update["Error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", updateErr["ErrorCode"])
}

func TestDeleteEnvironment(t *testing.T) {
	cp := &fakeControlPlane{}
	svc := newTestService(cp, false)

	res := svc.DeleteEnvironment(context.Background(), "staging")
	require.False(t, res.IsError())
	assert.Contains(t, res.Get("message"), "staging")
	assert.Equal(t, []string{"staging"}, cp.deleteCalls)
}

func TestTokenOperations(t *testing.T) {
	cp := &fakeControlPlane{
		cliOut: &awsmwaa.CreateCliTokenOutput{
			CliToken:          aws.String("cli-token-value"),
			WebServerHostname: aws.String("webserver.example.com"),
		},
		webOut: &awsmwaa.CreateWebLoginTokenOutput{
			WebToken:          aws.String("web-token-value"),
			WebServerHostname: aws.String("webserver.example.com"),
			IamIdentity:       aws.String("arn:aws:sts::123456789012:assumed-role/ops"),
		},
	}
	svc := newTestService(cp, true)
	ctx := context.Background()

	cli := svc.CreateCliToken(ctx, "prod")
	require.False(t, cli.IsError())
	assert.Equal(t, "cli-token-value", cli.Get("CliToken"))
	assert.Equal(t, "webserver.example.com", cli.Get("WebServerHostname"))

	web := svc.CreateWebLoginToken(ctx, "prod")
	require.False(t, web.IsError())
	assert.Equal(t, "web-token-value", web.Get("WebToken"))
	assert.Equal(t, "arn:aws:sts::123456789012:assumed-role/ops", web.Get("IamIdentity"))
}

func TestDagOperationsSurfaceMintFailure(t *testing.T) {
	cp := &fakeControlPlane{}
	svc := newTestService(cp, true)

	res := svc.ListDags(context.Background(), "missing", airflow.ListDagsParams{})
	require.True(t, res.IsError())
	assert.Equal(t, core.KindRemote, res.Err.Kind)
	assert.Equal(t, "ResourceNotFoundException", res.Err.Code)
	assert.Equal(t, 1, cp.cliCalls)
}

func TestStaticCredentialsControlPlane(t *testing.T) {
	cp := NewControlPlaneWithStaticCredentials("eu-west-1", "AKIAEXAMPLE", "secret", "")
	require.NotNil(t, cp)
}
