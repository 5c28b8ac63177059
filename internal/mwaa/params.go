package mwaa

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmwaa "github.com/aws/aws-sdk-go-v2/service/mwaa"
	"github.com/aws/aws-sdk-go-v2/service/mwaa/types"
)

// Create/update arguments arrive as the tool-side snake_case map. The
// builders below are the fixed lookup table from those names to the SDK's
// field names; absent keys stay nil so the SDK omits them from the request.

func buildCreateEnvironmentInput(args map[string]any) (*awsmwaa.CreateEnvironmentInput, error) {
	in := &awsmwaa.CreateEnvironmentInput{
		Name:             reqString(args, "name"),
		DagS3Path:        reqString(args, "dag_s3_path"),
		ExecutionRoleArn: reqString(args, "execution_role_arn"),
		SourceBucketArn:  reqString(args, "source_bucket_arn"),
	}
	if in.Name == nil || in.DagS3Path == nil || in.ExecutionRoleArn == nil || in.SourceBucketArn == nil {
		return nil, fmt.Errorf("name, dag_s3_path, execution_role_arn and source_bucket_arn are required")
	}

	network, err := networkConfiguration(args)
	if err != nil {
		return nil, err
	}
	if network == nil {
		return nil, fmt.Errorf("network_configuration is required")
	}
	in.NetworkConfiguration = network

	in.AirflowVersion = optString(args, "airflow_version")
	in.EnvironmentClass = optString(args, "environment_class")
	in.MaxWorkers = optInt32(args, "max_workers")
	in.MinWorkers = optInt32(args, "min_workers")
	in.Schedulers = optInt32(args, "schedulers")
	in.WebserverAccessMode = accessMode(args)
	in.WeeklyMaintenanceWindowStart = optString(args, "weekly_maintenance_window_start")
	in.Tags = stringMap(args, "tags")
	in.AirflowConfigurationOptions = stringMap(args, "airflow_configuration_options")
	in.RequirementsS3Path = optString(args, "requirements_s3_path")
	in.PluginsS3Path = optString(args, "plugins_s3_path")
	in.StartupScriptS3Path = optString(args, "startup_script_s3_path")

	logging, err := loggingConfiguration(args)
	if err != nil {
		return nil, err
	}
	in.LoggingConfiguration = logging

	return in, nil
}

func buildUpdateEnvironmentInput(args map[string]any) (*awsmwaa.UpdateEnvironmentInput, error) {
	in := &awsmwaa.UpdateEnvironmentInput{Name: reqString(args, "name")}
	if in.Name == nil {
		return nil, fmt.Errorf("name is required")
	}

	in.DagS3Path = optString(args, "dag_s3_path")
	in.ExecutionRoleArn = optString(args, "execution_role_arn")
	in.SourceBucketArn = optString(args, "source_bucket_arn")
	in.AirflowVersion = optString(args, "airflow_version")
	in.EnvironmentClass = optString(args, "environment_class")
	in.MaxWorkers = optInt32(args, "max_workers")
	in.MinWorkers = optInt32(args, "min_workers")
	in.Schedulers = optInt32(args, "schedulers")
	in.WebserverAccessMode = accessMode(args)
	in.WeeklyMaintenanceWindowStart = optString(args, "weekly_maintenance_window_start")
	in.AirflowConfigurationOptions = stringMap(args, "airflow_configuration_options")
	in.RequirementsS3Path = optString(args, "requirements_s3_path")
	in.PluginsS3Path = optString(args, "plugins_s3_path")
	in.StartupScriptS3Path = optString(args, "startup_script_s3_path")

	// Updates may only change security groups; subnets are fixed at creation.
	if raw, ok := args["network_configuration"].(map[string]any); ok {
		groups := stringSlice(raw, "security_group_ids")
		if len(groups) == 0 {
			return nil, fmt.Errorf("network_configuration update requires security_group_ids")
		}
		in.NetworkConfiguration = &types.UpdateNetworkConfigurationInput{SecurityGroupIds: groups}
	}

	logging, err := loggingConfiguration(args)
	if err != nil {
		return nil, err
	}
	in.LoggingConfiguration = logging

	return in, nil
}

func networkConfiguration(args map[string]any) (*types.NetworkConfiguration, error) {
	raw, ok := args["network_configuration"].(map[string]any)
	if !ok {
		return nil, nil
	}
	subnets := stringSlice(raw, "subnet_ids")
	groups := stringSlice(raw, "security_group_ids")
	if len(subnets) == 0 || len(groups) == 0 {
		return nil, fmt.Errorf("network_configuration requires subnet_ids and security_group_ids")
	}
	return &types.NetworkConfiguration{SubnetIds: subnets, SecurityGroupIds: groups}, nil
}

// loggingConfiguration maps the per-component snake_case keys onto the SDK's
// logging input. Unknown component names are rejected rather than dropped.
func loggingConfiguration(args map[string]any) (*types.LoggingConfigurationInput, error) {
	raw, ok := args["logging_configuration"].(map[string]any)
	if !ok {
		return nil, nil
	}

	out := &types.LoggingConfigurationInput{}
	targets := map[string]**types.ModuleLoggingConfigurationInput{
		"dag_processing_logs": &out.DagProcessingLogs,
		"scheduler_logs":      &out.SchedulerLogs,
		"task_logs":           &out.TaskLogs,
		"webserver_logs":      &out.WebserverLogs,
		"worker_logs":         &out.WorkerLogs,
	}

	for key, value := range raw {
		target, ok := targets[key]
		if !ok {
			return nil, fmt.Errorf("unknown logging component %q", key)
		}
		section, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("logging component %q must be an object", key)
		}
		module := &types.ModuleLoggingConfigurationInput{}
		if enabled, ok := section["enabled"].(bool); ok {
			module.Enabled = aws.Bool(enabled)
		}
		if level, ok := section["log_level"].(string); ok {
			module.LogLevel = types.LoggingLevel(level)
		}
		*target = module
	}
	return out, nil
}

func accessMode(args map[string]any) types.WebserverAccessMode {
	mode, _ := args["webserver_access_mode"].(string)
	return types.WebserverAccessMode(mode)
}

func reqString(args map[string]any, key string) *string {
	s, ok := args[key].(string)
	if !ok || s == "" {
		return nil
	}
	return aws.String(s)
}

func optString(args map[string]any, key string) *string {
	return reqString(args, key)
}

// optInt32 accepts the float64 the JSON decoder produces as well as native ints.
func optInt32(args map[string]any, key string) *int32 {
	switch v := args[key].(type) {
	case float64:
		return aws.Int32(int32(v))
	case int:
		return aws.Int32(int32(v))
	case int32:
		return aws.Int32(v)
	case int64:
		return aws.Int32(int32(v))
	default:
		return nil
	}
}

func stringMap(args map[string]any, key string) map[string]string {
	raw, ok := args[key].(map[string]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func stringSlice(args map[string]any, key string) []string {
	switch raw := args[key].(type) {
	case []string:
		return raw
	case []any:
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
