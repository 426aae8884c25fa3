package provider

import "context"

// Adapt turns a backend provider with types [BI, BO] into a domain provider
// with types [I, O]. mapIn runs before the call and mapOut after it.
func Adapt[I, O, BI, BO any](
	inner RequestResponse[BI, BO],
	name string,
	mapIn func(ctx context.Context, input I) (BI, error),
	mapOut func(input I, output BO) (O, error),
) RequestResponse[I, O] {
	return &adaptedRR[I, O, BI, BO]{inner: inner, name: name, mapIn: mapIn, mapOut: mapOut}
}

type adaptedRR[I, O, BI, BO any] struct {
	inner  RequestResponse[BI, BO]
	name   string
	mapIn  func(ctx context.Context, input I) (BI, error)
	mapOut func(input I, output BO) (O, error)
}

func (a *adaptedRR[I, O, BI, BO]) Name() string { return a.name }

func (a *adaptedRR[I, O, BI, BO]) IsAvailable(ctx context.Context) bool {
	return a.inner.IsAvailable(ctx)
}

func (a *adaptedRR[I, O, BI, BO]) Execute(ctx context.Context, input I) (O, error) {
	var zero O
	backendInput, err := a.mapIn(ctx, input)
	if err != nil {
		return zero, err
	}
	backendOutput, err := a.inner.Execute(ctx, backendInput)
	if err != nil {
		return zero, err
	}
	return a.mapOut(input, backendOutput)
}

// Unwrap returns the backend provider.
func (a *adaptedRR[I, O, BI, BO]) Unwrap() any { return a.inner }
