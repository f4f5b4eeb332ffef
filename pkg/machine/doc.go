/*
Package machine implements the conversation state machine.

Given a user's current Session and one line of text, Machine.Apply computes the
next Session, the reply to send and, when needed, calls exactly one remote delegate
through ports.Gateway. The machine never persists anything; the caller (the
dispatcher) loads and saves sessions around it.

# Dialogue

	fresh → await_access_code → onboard_sex → onboard_age → onboard_height →
	onboard_weight → onboard_activity → onboard_goal → ready ⇄ category_selected

Every onboarding step has one validator and one successor. Invalid input, delegate
rejections and delegate transport failures all return the session unchanged with a
corrective reply. The global commands help, status, reset and start are matched
before any step logic.
*/
package machine
