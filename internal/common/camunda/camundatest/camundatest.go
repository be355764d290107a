// internal/common/camunda/camundatest/camundatest.go
//
// Package camundatest builds Zeebe jobs for handler tests.
package camundatest

import (
	"encoding/json"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/require"
)

// Job returns an activated job of taskType whose variables are vars encoded
// as JSON, the way the broker delivers them.
func Job(t *testing.T, taskType string, vars interface{}) entities.Job {
	t.Helper()
	b, err := json.Marshal(vars)
	require.NoError(t, err)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1, Type: taskType, Variables: string(b)}}
}

// Variables encodes output as the completion variables of a job and reads
// them back as the process would see them.
func Variables(t *testing.T, output interface{}) map[string]interface{} {
	t.Helper()
	b, err := json.Marshal(output)
	require.NoError(t, err)
	vars := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(b, &vars))
	return vars
}
