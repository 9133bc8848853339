package leveldb

import (
	"testing"

	"github.com/btcsuite/smartfee/database/engine"
	"github.com/stretchr/testify/require"
)

func TestSuiteLevelDB(t *testing.T) {
	engine.TestSuiteEngine(t, NewDB)
}

func TestRegistered(t *testing.T) {
	require.Contains(t, engine.SupportedKinds(), Kind)
}
