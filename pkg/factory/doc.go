// Package factory creates llm.Client values from a llm.ClientConfig.
//
// A Registry maps provider names to constructors. Builtin returns a registry
// with every provider shipped in this module; callers that need a restricted
// or extended set build their own and pass it to New.
//
//	f := factory.New(factory.Builtin())
//	client, err := f.CreateClient(llm.ClientConfig{
//	    Provider: "openai",
//	    Model:    "gpt-4o-mini",
//	    APIKey:   os.Getenv("OPENAI_API_KEY"),
//	})
package factory
