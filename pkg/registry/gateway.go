package registry

// ParallelGateway is the built-in gateway. Every successor whose guard holds is traversed.
type ParallelGateway struct{}

func (ParallelGateway) ID() string {
	return "parallel"
}

func (ParallelGateway) Name() string {
	return "Parallel gateway"
}

func (ParallelGateway) Description() string {
	return "Fans out to every successor whose guard evaluates to true, in listed order."
}

func (ParallelGateway) Schema() map[string]any {
	return nil
}
