package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/duplocloud/dcaf-sub001/internal/types"
)

func TestCheckReadOnly(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{"plain match", "MATCH (n:Service) RETURN n", false},
		{"with where", "MATCH (n:Pod) WHERE n.name = $name RETURN n", false},
		{"create", "CREATE (n:Service {name: 'x'})", true},
		{"lowercase create", "create (n:Service)", true},
		{"merge", "MERGE (n:Tenant {id: 'a'})", true},
		{"delete", "MATCH (n) DELETE n", true},
		{"detach delete", "MATCH (n) DETACH DELETE n", true},
		{"set", "MATCH (n) SET n.x = 1", true},
		{"remove", "MATCH (n) REMOVE n.x", true},
		{"keyword mid-query", "MATCH (n) WITH n CREATE (m) RETURN m", true},
		{"keyword as substring is allowed", "MATCH (n:Dataset) RETURN n.offset", false},
		{"merged as substring is allowed", "MATCH (n) WHERE n.state = 'MERGED' RETURN n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckReadOnly(tt.query)
			if tt.wantErr {
				assert.True(t, errors.Is(err, types.NewError(types.GRAPH_READ_ONLY, "")))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(errors.New("read tcp 10.0.0.1:7687: connection reset by peer")))
	assert.True(t, IsTransient(errors.New("Neo.ClientError.Security.SessionExpired: session expired")))
	assert.True(t, IsTransient(NewConnectionError("dial failed", errors.New("refused"))))
	assert.False(t, IsTransient(errors.New("Neo.ClientError.Statement.SyntaxError: bad input")))
	assert.False(t, IsTransient(NewQueryError("syntax error", nil)))
	assert.False(t, IsTransient(nil))
}
