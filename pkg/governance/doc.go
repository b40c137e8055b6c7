/*
Package governance is the in-process entry point used by the messaging
pipeline. A Service bundles context compaction, farewell detection, quota
resolution and usage registration behind one object built from a
config.Config.

# Error Policy

The Service never propagates classification or registration failures:

  - PrepareConversationContext always returns a context; model failures fall
    back to heuristics and an empty summary
  - CheckTokenLimit always returns a decision; resolution failures block
  - RegisterTokenUsage always returns a result; failures leave Registered
    false and the turn continues

# Wiring

New builds every collaborator from configuration unless Options supplies it:

	cfg, err := config.LoadConfigWithEnvOverrides("converse.yaml")
	if err != nil {
	    return err
	}

	svc, err := governance.New(ctx, cfg, governance.Options{})
	if err != nil {
	    return err
	}
	defer svc.Close()

	if err := svc.Start(ctx); err != nil {
	    return err
	}
	go svc.Watch(ctx, "converse.yaml")

	decision := svc.CheckTokenLimit(ctx, companyID)
	if decision.LimitReached {
	    // reply with the fixed unavailable message
	}
	cc := svc.PrepareConversationContext(ctx, turns)
	block := svc.FormatContextForPrompt(cc)
	// ... generate the reply ...
	svc.RegisterTokenUsage(ctx, companyID, usage.InputTokens, usage.OutputTokens)

# Hot Reload

ApplyConfig swaps the quota policy (cache TTL, thresholds, default trial
limit) and reloads companies and plans of the memory directory. Provider,
storage and directory backends are fixed at construction.
*/
package governance
