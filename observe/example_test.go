package observe_test

import (
	"context"
	"fmt"
	"os"

	"github.com/jonwraymond/authcore/observe"
)

func ExampleMiddleware_Observe() {
	mw := observe.NewMiddleware(nil, nil, observe.NewLoggerWithWriter("error", os.Stdout))

	d, err := mw.Observe(context.Background(), "token", func(context.Context) (observe.Decision, error) {
		return observe.Decision{Method: "bearer", Outcome: observe.OutcomeAuthenticated, PrincipalID: "user-1"}, nil
	})
	fmt.Println(d.Strategy, d.Outcome, err)
	// Output: token authenticated <nil>
}
