// Package mwaa bridges the MWAA control plane and the Airflow REST data
// plane behind a single facade. Control-plane calls go straight to the AWS
// SDK; data-plane calls borrow short-lived CLI tokens and reuse cached
// per-environment HTTP clients.
package mwaa

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsmwaa "github.com/aws/aws-sdk-go-v2/service/mwaa"
	"github.com/aws/aws-sdk-go-v2/service/mwaa/types"
	"github.com/rs/zerolog"

	"github.com/airbridge-project/airbridge/internal/airflow"
	"github.com/airbridge-project/airbridge/internal/core"
	"github.com/airbridge-project/airbridge/internal/guard"
)

// listEnvironmentsCap bounds the enrichment fan-out on environment listing.
const listEnvironmentsCap = 25

// ControlPlane is the slice of the MWAA API the service depends on.
type ControlPlane interface {
	ListEnvironments(ctx context.Context, in *awsmwaa.ListEnvironmentsInput, opts ...func(*awsmwaa.Options)) (*awsmwaa.ListEnvironmentsOutput, error)
	GetEnvironment(ctx context.Context, in *awsmwaa.GetEnvironmentInput, opts ...func(*awsmwaa.Options)) (*awsmwaa.GetEnvironmentOutput, error)
	CreateEnvironment(ctx context.Context, in *awsmwaa.CreateEnvironmentInput, opts ...func(*awsmwaa.Options)) (*awsmwaa.CreateEnvironmentOutput, error)
	UpdateEnvironment(ctx context.Context, in *awsmwaa.UpdateEnvironmentInput, opts ...func(*awsmwaa.Options)) (*awsmwaa.UpdateEnvironmentOutput, error)
	DeleteEnvironment(ctx context.Context, in *awsmwaa.DeleteEnvironmentInput, opts ...func(*awsmwaa.Options)) (*awsmwaa.DeleteEnvironmentOutput, error)
	CreateCliToken(ctx context.Context, in *awsmwaa.CreateCliTokenInput, opts ...func(*awsmwaa.Options)) (*awsmwaa.CreateCliTokenOutput, error)
	CreateWebLoginToken(ctx context.Context, in *awsmwaa.CreateWebLoginTokenInput, opts ...func(*awsmwaa.Options)) (*awsmwaa.CreateWebLoginTokenOutput, error)
}

// NewControlPlane builds the real MWAA client from the ambient AWS
// credential chain.
func NewControlPlane(ctx context.Context, region, profile string) (ControlPlane, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS configuration: %w", err)
	}
	return awsmwaa.NewFromConfig(cfg), nil
}

// NewControlPlaneWithStaticCredentials builds an MWAA client from explicit
// keys, bypassing the shared credential chain.
func NewControlPlaneWithStaticCredentials(region, accessKey, secretKey, sessionToken string) ControlPlane {
	return awsmwaa.New(awsmwaa.Options{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(accessKey, secretKey, sessionToken),
	})
}

// Service exposes every environment and workflow operation as a uniform
// Result. Mutating operations pass through the read-only gate first.
type Service struct {
	cp     ControlPlane
	cache  *ClientCache
	gate   *guard.Gate
	logger zerolog.Logger
}

func NewService(cp ControlPlane, gate *guard.Gate, logger zerolog.Logger) *Service {
	s := &Service{cp: cp, gate: gate, logger: logger}
	s.cache = NewClientCache(s.mintCliToken, logger)
	return s
}

func (s *Service) mintCliToken(ctx context.Context, environmentName string) (string, string, error) {
	out, err := s.cp.CreateCliToken(ctx, &awsmwaa.CreateCliTokenInput{Name: aws.String(environmentName)})
	if err != nil {
		return "", "", err
	}
	return aws.ToString(out.WebServerHostname), aws.ToString(out.CliToken), nil
}

// ListEnvironments enumerates environment names and enriches each with its
// detail record. maxResults <= 0 means the control plane's default page;
// anything larger than the cap is clamped. Enrichment failures degrade the
// affected entry instead of failing the whole listing.
func (s *Service) ListEnvironments(ctx context.Context, maxResults int) core.Result {
	in := &awsmwaa.ListEnvironmentsInput{}
	if maxResults > 0 {
		in.MaxResults = aws.Int32(int32(min(maxResults, listEnvironmentsCap)))
	}
	out, err := s.cp.ListEnvironments(ctx, in)
	if err != nil {
		return normalizeError(err)
	}

	environments := make([]map[string]any, 0, len(out.Environments))
	for _, name := range out.Environments {
		detail, err := s.cp.GetEnvironment(ctx, &awsmwaa.GetEnvironmentInput{Name: aws.String(name)})
		if err != nil {
			s.logger.Warn().Str("environment", name).Err(err).Msg("environment detail lookup failed")
			environments = append(environments, map[string]any{
				"Name":   name,
				"Status": "ERROR",
				"Error":  err.Error(),
			})
			continue
		}
		environments = append(environments, environmentDetail(detail.Environment))
	}

	payload := map[string]any{"Environments": environments}
	if out.NextToken != nil {
		payload["NextToken"] = aws.ToString(out.NextToken)
	}
	return core.OK(payload)
}

func (s *Service) GetEnvironment(ctx context.Context, name string) core.Result {
	out, err := s.cp.GetEnvironment(ctx, &awsmwaa.GetEnvironmentInput{Name: aws.String(name)})
	if err != nil {
		return normalizeError(err)
	}
	return core.OK(map[string]any{"Environment": environmentDetail(out.Environment)})
}

func (s *Service) CreateEnvironment(ctx context.Context, args map[string]any) core.Result {
	if err := s.gate.Enforce("create_environment"); err != nil {
		return normalizeError(err)
	}
	in, err := buildCreateEnvironmentInput(args)
	if err != nil {
		return core.Failure(core.KindDecode, "InvalidParameter", err.Error())
	}
	out, err := s.cp.CreateEnvironment(ctx, in)
	if err != nil {
		return normalizeError(err)
	}
	return core.OK(map[string]any{"Arn": aws.ToString(out.Arn)})
}

func (s *Service) UpdateEnvironment(ctx context.Context, args map[string]any) core.Result {
	if err := s.gate.Enforce("update_environment"); err != nil {
		return normalizeError(err)
	}
	in, err := buildUpdateEnvironmentInput(args)
	if err != nil {
		return core.Failure(core.KindDecode, "InvalidParameter", err.Error())
	}
	out, err := s.cp.UpdateEnvironment(ctx, in)
	if err != nil {
		return normalizeError(err)
	}
	return core.OK(map[string]any{"Arn": aws.ToString(out.Arn)})
}

func (s *Service) DeleteEnvironment(ctx context.Context, name string) core.Result {
	if err := s.gate.Enforce("delete_environment"); err != nil {
		return normalizeError(err)
	}
	if _, err := s.cp.DeleteEnvironment(ctx, &awsmwaa.DeleteEnvironmentInput{Name: aws.String(name)}); err != nil {
		return normalizeError(err)
	}
	return core.OKMessage(fmt.Sprintf("Environment %s deletion initiated", name))
}

// CreateCliToken mints a fresh CLI token for direct use by the caller. The
// cached data-plane clients mint their own tokens independently.
func (s *Service) CreateCliToken(ctx context.Context, name string) core.Result {
	out, err := s.cp.CreateCliToken(ctx, &awsmwaa.CreateCliTokenInput{Name: aws.String(name)})
	if err != nil {
		return normalizeError(err)
	}
	return core.OK(map[string]any{
		"CliToken":          aws.ToString(out.CliToken),
		"WebServerHostname": aws.ToString(out.WebServerHostname),
	})
}

func (s *Service) CreateWebLoginToken(ctx context.Context, name string) core.Result {
	out, err := s.cp.CreateWebLoginToken(ctx, &awsmwaa.CreateWebLoginTokenInput{Name: aws.String(name)})
	if err != nil {
		return normalizeError(err)
	}
	return core.OK(map[string]any{
		"WebToken":          aws.ToString(out.WebToken),
		"WebServerHostname": aws.ToString(out.WebServerHostname),
		"IamIdentity":       aws.ToString(out.IamIdentity),
	})
}

// withClient resolves the cached data-plane client for an environment and
// runs op against it. Resolution failures surface as transport errors.
func (s *Service) withClient(ctx context.Context, environmentName string, op func(*airflow.Client) core.Result) core.Result {
	client, err := s.cache.GetOrCreate(ctx, environmentName)
	if err != nil {
		return normalizeError(err)
	}
	return op(client)
}

func (s *Service) ListDags(ctx context.Context, environmentName string, params airflow.ListDagsParams) core.Result {
	return s.withClient(ctx, environmentName, func(c *airflow.Client) core.Result {
		return c.ListDags(ctx, params)
	})
}

func (s *Service) GetDag(ctx context.Context, environmentName, dagID string) core.Result {
	return s.withClient(ctx, environmentName, func(c *airflow.Client) core.Result {
		return c.GetDag(ctx, dagID)
	})
}

func (s *Service) GetDagSource(ctx context.Context, environmentName, fileToken string) core.Result {
	return s.withClient(ctx, environmentName, func(c *airflow.Client) core.Result {
		return c.GetDagSource(ctx, fileToken)
	})
}

func (s *Service) TriggerDagRun(ctx context.Context, environmentName, dagID, dagRunID string, conf map[string]any, note string) core.Result {
	if err := s.gate.Enforce("trigger_dag_run"); err != nil {
		return normalizeError(err)
	}
	return s.withClient(ctx, environmentName, func(c *airflow.Client) core.Result {
		return c.TriggerDagRun(ctx, dagID, dagRunID, conf, note)
	})
}

func (s *Service) GetDagRun(ctx context.Context, environmentName, dagID, dagRunID string) core.Result {
	return s.withClient(ctx, environmentName, func(c *airflow.Client) core.Result {
		return c.GetDagRun(ctx, dagID, dagRunID)
	})
}

func (s *Service) ListDagRuns(ctx context.Context, environmentName, dagID string, params airflow.ListDagRunsParams) core.Result {
	return s.withClient(ctx, environmentName, func(c *airflow.Client) core.Result {
		return c.ListDagRuns(ctx, dagID, params)
	})
}

func (s *Service) GetTaskInstance(ctx context.Context, environmentName, dagID, dagRunID, taskID string) core.Result {
	return s.withClient(ctx, environmentName, func(c *airflow.Client) core.Result {
		return c.GetTaskInstance(ctx, dagID, dagRunID, taskID)
	})
}

func (s *Service) GetTaskLogs(ctx context.Context, environmentName, dagID, dagRunID, taskID string, tryNumber int) core.Result {
	return s.withClient(ctx, environmentName, func(c *airflow.Client) core.Result {
		return c.GetTaskLogs(ctx, dagID, dagRunID, taskID, tryNumber)
	})
}

func (s *Service) ListConnections(ctx context.Context, environmentName string, page airflow.Page) core.Result {
	return s.withClient(ctx, environmentName, func(c *airflow.Client) core.Result {
		return c.ListConnections(ctx, page)
	})
}

func (s *Service) ListVariables(ctx context.Context, environmentName string, page airflow.Page) core.Result {
	return s.withClient(ctx, environmentName, func(c *airflow.Client) core.Result {
		return c.ListVariables(ctx, page)
	})
}

func (s *Service) GetImportErrors(ctx context.Context, environmentName string, page airflow.Page) core.Result {
	return s.withClient(ctx, environmentName, func(c *airflow.Client) core.Result {
		return c.GetImportErrors(ctx, page)
	})
}

// Close releases the cached data-plane clients.
func (s *Service) Close() {
	s.cache.Close()
}

// environmentDetail flattens the SDK environment record into the response
// payload. Timestamps are normalized to RFC3339; nil fields are omitted.
func environmentDetail(env *types.Environment) map[string]any {
	if env == nil {
		return map[string]any{}
	}
	detail := map[string]any{
		"Name":   aws.ToString(env.Name),
		"Status": string(env.Status),
	}
	putString(detail, "Arn", env.Arn)
	putString(detail, "WebserverUrl", env.WebserverUrl)
	putString(detail, "ExecutionRoleArn", env.ExecutionRoleArn)
	putString(detail, "SourceBucketArn", env.SourceBucketArn)
	putString(detail, "DagS3Path", env.DagS3Path)
	putString(detail, "AirflowVersion", env.AirflowVersion)
	putString(detail, "EnvironmentClass", env.EnvironmentClass)
	putString(detail, "WeeklyMaintenanceWindowStart", env.WeeklyMaintenanceWindowStart)
	putString(detail, "KmsKey", env.KmsKey)
	putString(detail, "RequirementsS3Path", env.RequirementsS3Path)
	putString(detail, "PluginsS3Path", env.PluginsS3Path)
	putString(detail, "StartupScriptS3Path", env.StartupScriptS3Path)
	putTime(detail, "CreatedAt", env.CreatedAt)
	putInt32(detail, "MaxWorkers", env.MaxWorkers)
	putInt32(detail, "MinWorkers", env.MinWorkers)
	putInt32(detail, "Schedulers", env.Schedulers)
	if env.WebserverAccessMode != "" {
		detail["WebserverAccessMode"] = string(env.WebserverAccessMode)
	}
	if len(env.Tags) > 0 {
		detail["Tags"] = env.Tags
	}
	if len(env.AirflowConfigurationOptions) > 0 {
		detail["AirflowConfigurationOptions"] = env.AirflowConfigurationOptions
	}
	if nc := env.NetworkConfiguration; nc != nil {
		detail["NetworkConfiguration"] = map[string]any{
			"SubnetIds":        nc.SubnetIds,
			"SecurityGroupIds": nc.SecurityGroupIds,
		}
	}
	if lu := env.LastUpdate; lu != nil {
		update := map[string]any{"Status": string(lu.Status)}
		putTime(update, "CreatedAt", lu.CreatedAt)
		if lu.Error != nil {
			update["Error"] = map[string]any{
				"ErrorCode":    aws.ToString(lu.Error.ErrorCode),
				"ErrorMessage": aws.ToString(lu.Error.ErrorMessage),
			}
		}
		detail["LastUpdate"] = update
	}
	if lc := env.LoggingConfiguration; lc != nil {
		logging := map[string]any{}
		putModuleLogging(logging, "DagProcessingLogs", lc.DagProcessingLogs)
		putModuleLogging(logging, "SchedulerLogs", lc.SchedulerLogs)
		putModuleLogging(logging, "TaskLogs", lc.TaskLogs)
		putModuleLogging(logging, "WebserverLogs", lc.WebserverLogs)
		putModuleLogging(logging, "WorkerLogs", lc.WorkerLogs)
		if len(logging) > 0 {
			detail["LoggingConfiguration"] = logging
		}
	}
	return detail
}

func putString(m map[string]any, key string, value *string) {
	if value != nil && *value != "" {
		m[key] = *value
	}
}

func putInt32(m map[string]any, key string, value *int32) {
	if value != nil {
		m[key] = *value
	}
}

func putTime(m map[string]any, key string, value *time.Time) {
	if value != nil {
		m[key] = value.UTC().Format(time.RFC3339)
	}
}

func putModuleLogging(m map[string]any, key string, mod *types.ModuleLoggingConfiguration) {
	if mod == nil {
		return
	}
	entry := map[string]any{"Enabled": aws.ToBool(mod.Enabled)}
	if mod.LogLevel != "" {
		entry["LogLevel"] = string(mod.LogLevel)
	}
	putString(entry, "CloudWatchLogGroupArn", mod.CloudWatchLogGroupArn)
	m[key] = entry
}
