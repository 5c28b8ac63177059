package mwaa

import (
	"errors"

	"github.com/aws/smithy-go"

	"github.com/airbridge-project/airbridge/internal/core"
	"github.com/airbridge-project/airbridge/internal/guard"
)

// normalizeError maps the heterogeneous failure modes of the control-plane
// SDK and the client cache into the uniform result shape. Policy denials keep
// their own kind so tests can tell "blocked locally" from "rejected
// remotely"; AWS API errors keep the upstream code and message verbatim.
func normalizeError(err error) core.Result {
	var denial *guard.PolicyDenial
	if errors.As(err, &denial) {
		return core.Failure(core.KindPolicy, "ReadOnlyMode", denial.Error())
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return core.Failure(core.KindRemote, apiErr.ErrorCode(), apiErr.ErrorMessage())
	}

	return core.Failuref(core.KindTransport, "%v", err)
}
