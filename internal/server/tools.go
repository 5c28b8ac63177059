package server

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/airbridge-project/airbridge/internal/airflow"
	"github.com/airbridge-project/airbridge/internal/audit"
	"github.com/airbridge-project/airbridge/internal/guidance"
)

func (s *Server) registerTools() {
	// Environment management
	s.mcp.AddTool(mcp.NewTool("list_environments",
		mcp.WithDescription("List all MWAA environments in the current AWS account and region, with per-environment details."),
		mcp.WithNumber("max_results", mcp.Description("Maximum number of environments to return (1-25)")),
	), s.handleListEnvironments)

	s.mcp.AddTool(mcp.NewTool("get_environment",
		mcp.WithDescription("Get detailed information about a specific MWAA environment."),
		mcp.WithString("name", mcp.Required(), mcp.Description("The name of the MWAA environment")),
	), s.handleGetEnvironment)

	s.mcp.AddTool(mcp.NewTool("create_environment",
		mcp.WithDescription("Create a new MWAA environment. Refused in read-only mode."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Environment name")),
		mcp.WithString("dag_s3_path", mcp.Required(), mcp.Description("S3 path to the DAGs folder, e.g. dags")),
		mcp.WithString("execution_role_arn", mcp.Required(), mcp.Description("IAM role ARN for the environment")),
		mcp.WithString("source_bucket_arn", mcp.Required(), mcp.Description("ARN of the S3 bucket containing DAGs")),
		mcp.WithObject("network_configuration", mcp.Required(), mcp.Description("VPC configuration with subnet_ids and security_group_ids")),
		mcp.WithString("airflow_version", mcp.Description("Apache Airflow version, e.g. 2.10.1")),
		mcp.WithString("environment_class", mcp.Description("Environment size: mw1.small, mw1.medium, mw1.large, mw1.xlarge, mw1.2xlarge")),
		mcp.WithNumber("max_workers", mcp.Description("Maximum number of workers (1-25)")),
		mcp.WithNumber("min_workers", mcp.Description("Minimum number of workers (1-25)")),
		mcp.WithNumber("schedulers", mcp.Description("Number of schedulers (2-5)")),
		mcp.WithString("webserver_access_mode", mcp.Description("PUBLIC_ONLY or PRIVATE_ONLY")),
		mcp.WithString("weekly_maintenance_window_start", mcp.Description("Maintenance window start, e.g. SUN:03:00")),
		mcp.WithObject("tags", mcp.Description("Resource tags")),
		mcp.WithObject("airflow_configuration_options", mcp.Description("Airflow configuration overrides")),
		mcp.WithObject("logging_configuration", mcp.Description("Per-component logging settings")),
		mcp.WithString("requirements_s3_path", mcp.Description("S3 path to requirements.txt")),
		mcp.WithString("plugins_s3_path", mcp.Description("S3 path to plugins.zip")),
		mcp.WithString("startup_script_s3_path", mcp.Description("S3 path to the startup script")),
	), s.handleCreateEnvironment)

	s.mcp.AddTool(mcp.NewTool("update_environment",
		mcp.WithDescription("Update an existing MWAA environment. Refused in read-only mode."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Environment name")),
		mcp.WithString("dag_s3_path", mcp.Description("S3 path to the DAGs folder")),
		mcp.WithString("execution_role_arn", mcp.Description("IAM role ARN for the environment")),
		mcp.WithString("source_bucket_arn", mcp.Description("ARN of the S3 bucket containing DAGs")),
		mcp.WithObject("network_configuration", mcp.Description("Only security_group_ids may change after creation")),
		mcp.WithString("airflow_version", mcp.Description("Apache Airflow version")),
		mcp.WithString("environment_class", mcp.Description("Environment size class")),
		mcp.WithNumber("max_workers", mcp.Description("Maximum number of workers")),
		mcp.WithNumber("min_workers", mcp.Description("Minimum number of workers")),
		mcp.WithNumber("schedulers", mcp.Description("Number of schedulers")),
		mcp.WithString("webserver_access_mode", mcp.Description("PUBLIC_ONLY or PRIVATE_ONLY")),
		mcp.WithString("weekly_maintenance_window_start", mcp.Description("Maintenance window start")),
		mcp.WithObject("airflow_configuration_options", mcp.Description("Airflow configuration overrides")),
		mcp.WithObject("logging_configuration", mcp.Description("Per-component logging settings")),
		mcp.WithString("requirements_s3_path", mcp.Description("S3 path to requirements.txt")),
		mcp.WithString("plugins_s3_path", mcp.Description("S3 path to plugins.zip")),
		mcp.WithString("startup_script_s3_path", mcp.Description("S3 path to the startup script")),
	), s.handleUpdateEnvironment)

	s.mcp.AddTool(mcp.NewTool("delete_environment",
		mcp.WithDescription("Delete an MWAA environment. Refused in read-only mode."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Environment name")),
	), s.handleDeleteEnvironment)

	s.mcp.AddTool(mcp.NewTool("create_cli_token",
		mcp.WithDescription("Create a short-lived CLI token for an MWAA environment."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Environment name")),
	), s.handleCreateCliToken)

	s.mcp.AddTool(mcp.NewTool("create_web_login_token",
		mcp.WithDescription("Create a web login token for the Airflow UI of an MWAA environment."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Environment name")),
	), s.handleCreateWebLoginToken)

	// DAG inspection and execution
	s.mcp.AddTool(mcp.NewTool("list_dags",
		mcp.WithDescription("List DAGs in an MWAA environment."),
		mcp.WithString("environment_name", mcp.Required(), mcp.Description("Name of the MWAA environment")),
		mcp.WithNumber("limit", mcp.Description("Number of items to return (max 100)")),
		mcp.WithNumber("offset", mcp.Description("Number of items to skip")),
		mcp.WithArray("tags", mcp.Description("Filter by DAG tags")),
		mcp.WithString("dag_id_pattern", mcp.Description("Filter by DAG ID pattern, supports % wildcards")),
		mcp.WithBoolean("only_active", mcp.Description("Only return active DAGs")),
	), s.handleListDags)

	s.mcp.AddTool(mcp.NewTool("get_dag",
		mcp.WithDescription("Get details about a specific DAG."),
		mcp.WithString("environment_name", mcp.Required(), mcp.Description("Name of the MWAA environment")),
		mcp.WithString("dag_id", mcp.Required(), mcp.Description("The DAG ID")),
	), s.handleGetDag)

	s.mcp.AddTool(mcp.NewTool("get_dag_source",
		mcp.WithDescription("Get the source code of a DAG."),
		mcp.WithString("environment_name", mcp.Required(), mcp.Description("Name of the MWAA environment")),
		mcp.WithString("dag_id", mcp.Required(), mcp.Description("The DAG ID")),
	), s.handleGetDagSource)

	s.mcp.AddTool(mcp.NewTool("trigger_dag_run",
		mcp.WithDescription("Trigger a new DAG run. Refused in read-only mode."),
		mcp.WithString("environment_name", mcp.Required(), mcp.Description("Name of the MWAA environment")),
		mcp.WithString("dag_id", mcp.Required(), mcp.Description("The DAG ID to trigger")),
		mcp.WithString("dag_run_id", mcp.Description("Custom run ID, auto-generated if omitted")),
		mcp.WithObject("conf", mcp.Description("Configuration JSON for the DAG run")),
		mcp.WithString("note", mcp.Description("Optional note for the DAG run")),
	), s.handleTriggerDagRun)

	s.mcp.AddTool(mcp.NewTool("get_dag_run",
		mcp.WithDescription("Get details about a specific DAG run."),
		mcp.WithString("environment_name", mcp.Required(), mcp.Description("Name of the MWAA environment")),
		mcp.WithString("dag_id", mcp.Required(), mcp.Description("The DAG ID")),
		mcp.WithString("dag_run_id", mcp.Required(), mcp.Description("The DAG run ID")),
	), s.handleGetDagRun)

	s.mcp.AddTool(mcp.NewTool("list_dag_runs",
		mcp.WithDescription("List DAG runs for a specific DAG."),
		mcp.WithString("environment_name", mcp.Required(), mcp.Description("Name of the MWAA environment")),
		mcp.WithString("dag_id", mcp.Required(), mcp.Description("The DAG ID")),
		mcp.WithNumber("limit", mcp.Description("Number of items to return")),
		mcp.WithArray("state", mcp.Description("Filter by state: queued, running, success, failed")),
		mcp.WithString("execution_date_gte", mcp.Description("Filter by execution date >= (ISO format)")),
		mcp.WithString("execution_date_lte", mcp.Description("Filter by execution date <= (ISO format)")),
	), s.handleListDagRuns)

	// Task inspection
	s.mcp.AddTool(mcp.NewTool("get_task_instance",
		mcp.WithDescription("Get details about a specific task instance."),
		mcp.WithString("environment_name", mcp.Required(), mcp.Description("Name of the MWAA environment")),
		mcp.WithString("dag_id", mcp.Required(), mcp.Description("The DAG ID")),
		mcp.WithString("dag_run_id", mcp.Required(), mcp.Description("The DAG run ID")),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("The task ID")),
	), s.handleGetTaskInstance)

	s.mcp.AddTool(mcp.NewTool("get_task_logs",
		mcp.WithDescription("Get logs for a specific task instance."),
		mcp.WithString("environment_name", mcp.Required(), mcp.Description("Name of the MWAA environment")),
		mcp.WithString("dag_id", mcp.Required(), mcp.Description("The DAG ID")),
		mcp.WithString("dag_run_id", mcp.Required(), mcp.Description("The DAG run ID")),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("The task ID")),
		mcp.WithNumber("task_try_number", mcp.Description("Specific try number")),
	), s.handleGetTaskLogs)

	// Environment-level Airflow metadata
	s.mcp.AddTool(mcp.NewTool("list_connections",
		mcp.WithDescription("List Airflow connections in an environment."),
		mcp.WithString("environment_name", mcp.Required(), mcp.Description("Name of the MWAA environment")),
		mcp.WithNumber("limit", mcp.Description("Number of items to return")),
		mcp.WithNumber("offset", mcp.Description("Number of items to skip")),
	), s.handleListConnections)

	s.mcp.AddTool(mcp.NewTool("list_variables",
		mcp.WithDescription("List Airflow variables in an environment."),
		mcp.WithString("environment_name", mcp.Required(), mcp.Description("Name of the MWAA environment")),
		mcp.WithNumber("limit", mcp.Description("Number of items to return")),
		mcp.WithNumber("offset", mcp.Description("Number of items to skip")),
	), s.handleListVariables)

	s.mcp.AddTool(mcp.NewTool("get_import_errors",
		mcp.WithDescription("Get DAG import errors in an environment."),
		mcp.WithString("environment_name", mcp.Required(), mcp.Description("Name of the MWAA environment")),
		mcp.WithNumber("limit", mcp.Description("Number of items to return")),
		mcp.WithNumber("offset", mcp.Description("Number of items to skip")),
	), s.handleGetImportErrors)

	// Expert guidance
	s.mcp.AddTool(mcp.NewTool("airflow_best_practices",
		mcp.WithDescription("Get expert guidance on MWAA and Apache Airflow best practices."),
	), s.handleBestPractices)

	s.mcp.AddTool(mcp.NewTool("dag_design_guidance",
		mcp.WithDescription("Get expert guidance on DAG design and optimization."),
	), s.handleDagDesignGuidance)
}

func (s *Server) handleListEnvironments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	maxResults := req.GetInt("max_results", 0)
	return s.render("list_environments", "", s.svc.ListEnvironments(ctx, maxResults)), nil
}

func (s *Server) handleGetEnvironment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.render("get_environment", name, s.svc.GetEnvironment(ctx, name)), nil
}

func (s *Server) handleCreateEnvironment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	name, _ := args["name"].(string)
	return s.render("create_environment", name, s.svc.CreateEnvironment(ctx, args)), nil
}

func (s *Server) handleUpdateEnvironment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	name, _ := args["name"].(string)
	return s.render("update_environment", name, s.svc.UpdateEnvironment(ctx, args)), nil
}

func (s *Server) handleDeleteEnvironment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.render("delete_environment", name, s.svc.DeleteEnvironment(ctx, name)), nil
}

func (s *Server) handleCreateCliToken(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.render("create_cli_token", name, s.svc.CreateCliToken(ctx, name)), nil
}

func (s *Server) handleCreateWebLoginToken(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.render("create_web_login_token", name, s.svc.CreateWebLoginToken(ctx, name)), nil
}

func (s *Server) handleListDags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	env, err := req.RequireString("environment_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	params := airflow.ListDagsParams{
		Limit:        req.GetInt("limit", 100),
		Offset:       req.GetInt("offset", 0),
		Tags:         stringList(req, "tags"),
		DagIDPattern: req.GetString("dag_id_pattern", ""),
		OnlyActive:   req.GetBool("only_active", true),
	}
	return s.render("list_dags", env, s.svc.ListDags(ctx, env, params)), nil
}

func (s *Server) handleGetDag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	env, dagID, errResult := requireEnvAndDag(req)
	if errResult != nil {
		return errResult, nil
	}
	return s.render("get_dag", env, s.svc.GetDag(ctx, env, dagID)), nil
}

func (s *Server) handleGetDagSource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	env, dagID, errResult := requireEnvAndDag(req)
	if errResult != nil {
		return errResult, nil
	}
	return s.render("get_dag_source", env, s.svc.GetDagSource(ctx, env, dagID)), nil
}

func (s *Server) handleTriggerDagRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	env, dagID, errResult := requireEnvAndDag(req)
	if errResult != nil {
		return errResult, nil
	}
	var conf map[string]any
	if raw, ok := req.GetArguments()["conf"].(map[string]any); ok {
		conf = raw
	}
	res := s.svc.TriggerDagRun(ctx, env, dagID, req.GetString("dag_run_id", ""), conf, req.GetString("note", ""))
	return s.render("trigger_dag_run", env, res), nil
}

func (s *Server) handleGetDagRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	env, dagID, errResult := requireEnvAndDag(req)
	if errResult != nil {
		return errResult, nil
	}
	runID, err := req.RequireString("dag_run_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.render("get_dag_run", env, s.svc.GetDagRun(ctx, env, dagID, runID)), nil
}

func (s *Server) handleListDagRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	env, dagID, errResult := requireEnvAndDag(req)
	if errResult != nil {
		return errResult, nil
	}
	params := airflow.ListDagRunsParams{
		Limit:            req.GetInt("limit", 100),
		State:            stringList(req, "state"),
		ExecutionDateGTE: req.GetString("execution_date_gte", ""),
		ExecutionDateLTE: req.GetString("execution_date_lte", ""),
	}
	return s.render("list_dag_runs", env, s.svc.ListDagRuns(ctx, env, dagID, params)), nil
}

func (s *Server) handleGetTaskInstance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	env, dagID, runID, taskID, errResult := requireTaskCoordinates(req)
	if errResult != nil {
		return errResult, nil
	}
	return s.render("get_task_instance", env, s.svc.GetTaskInstance(ctx, env, dagID, runID, taskID)), nil
}

func (s *Server) handleGetTaskLogs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	env, dagID, runID, taskID, errResult := requireTaskCoordinates(req)
	if errResult != nil {
		return errResult, nil
	}
	tryNumber := req.GetInt("task_try_number", 0)
	return s.render("get_task_logs", env, s.svc.GetTaskLogs(ctx, env, dagID, runID, taskID, tryNumber)), nil
}

func (s *Server) handleListConnections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	env, page, errResult := requireEnvAndPage(req)
	if errResult != nil {
		return errResult, nil
	}
	return s.render("list_connections", env, s.svc.ListConnections(ctx, env, page)), nil
}

func (s *Server) handleListVariables(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	env, page, errResult := requireEnvAndPage(req)
	if errResult != nil {
		return errResult, nil
	}
	return s.render("list_variables", env, s.svc.ListVariables(ctx, env, page)), nil
}

func (s *Server) handleGetImportErrors(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	env, page, errResult := requireEnvAndPage(req)
	if errResult != nil {
		return errResult, nil
	}
	return s.render("get_import_errors", env, s.svc.GetImportErrors(ctx, env, page)), nil
}

func (s *Server) handleBestPractices(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.recorder.Record(audit.EventToolCall, "airflow_best_practices", "", map[string]any{"ok": true})
	return mcp.NewToolResultText(guidance.AirflowBestPractices), nil
}

func (s *Server) handleDagDesignGuidance(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.recorder.Record(audit.EventToolCall, "dag_design_guidance", "", map[string]any{"ok": true})
	return mcp.NewToolResultText(guidance.DagDesignGuidance), nil
}

func requireEnvAndDag(req mcp.CallToolRequest) (string, string, *mcp.CallToolResult) {
	env, err := req.RequireString("environment_name")
	if err != nil {
		return "", "", mcp.NewToolResultError(err.Error())
	}
	dagID, err := req.RequireString("dag_id")
	if err != nil {
		return "", "", mcp.NewToolResultError(err.Error())
	}
	return env, dagID, nil
}

func requireTaskCoordinates(req mcp.CallToolRequest) (string, string, string, string, *mcp.CallToolResult) {
	env, dagID, errResult := requireEnvAndDag(req)
	if errResult != nil {
		return "", "", "", "", errResult
	}
	runID, err := req.RequireString("dag_run_id")
	if err != nil {
		return "", "", "", "", mcp.NewToolResultError(err.Error())
	}
	taskID, err := req.RequireString("task_id")
	if err != nil {
		return "", "", "", "", mcp.NewToolResultError(err.Error())
	}
	return env, dagID, runID, taskID, nil
}

func requireEnvAndPage(req mcp.CallToolRequest) (string, airflow.Page, *mcp.CallToolResult) {
	env, err := req.RequireString("environment_name")
	if err != nil {
		return "", airflow.Page{}, mcp.NewToolResultError(err.Error())
	}
	page := airflow.Page{
		Limit:  req.GetInt("limit", 100),
		Offset: req.GetInt("offset", 0),
	}
	return env, page, nil
}

func stringList(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
