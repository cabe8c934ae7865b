package transport

import "context"

// Await выполняет call в отдельной горутине и возвращает ctx.Err(), если
// контекст завершился раньше. Нужен для клиентов, не принимающих context
// (supabase-go): сам вызов продолжится в фоне, но вызывающий не ждёт его.
func Await[T any](ctx context.Context, call func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := call()
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
