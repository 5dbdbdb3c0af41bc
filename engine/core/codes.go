package core

const (
	ErrCodeAgentNotFound       = "AGENT_NOT_FOUND"
	ErrCodeAgentInvalidConfig  = "AGENT_INVALID_CONFIG"
	ErrCodeAgentBuild          = "AGENT_BUILD_FAILED"
	ErrCodeMissingCredentials  = "MISSING_CREDENTIALS"
	ErrCodeUnsupportedProvider = "UNSUPPORTED_PROVIDER"

	ErrCodeExecutionNotFound     = "EXECUTION_NOT_FOUND"
	ErrCodeExecutionInvalidState = "EXECUTION_INVALID_STATE"
	ErrCodeExecutionTimeout      = "EXECUTION_TIMEOUT"
	ErrCodeExecutionCancelled    = "EXECUTION_CANCELLED"

	ErrCodeLLMGeneration      = "LLM_GENERATION_ERROR"
	ErrCodeCheckpointNotFound = "CHECKPOINT_NOT_FOUND"
)
