/*
Package nutri is a conversational onboarding and food logging bot.

A user talks to the bot in plain text. The bot walks them through an access code,
six onboarding questions (sex, age, height, weight, activity, goal) and then lets
them log catalog items per meal category and ask for the day's totals. Business
operations (account activation, profile targets, nutrient lookup, summaries) are
delegated to a remote backend; the bot only owns the dialogue.

# Layout

  - pkg/domain: the Session, its steps, the fixed vocabulary and sentinel errors.
  - pkg/parser: tolerant parsing of numbers, vocabulary and "<quantity> <item>" lines.
  - pkg/machine: the pure transition function over a Session.
  - pkg/session: per-user serialization and optimistic retries around a store.
  - pkg/dispatch: one inbound event in, one reply out.
  - pkg/adapters: stores (memory, redis, sqlite), the backend RPC client, Telegram,
    HTTP and MCP surfaces.

The cmd/nutri binary wires these together from configuration.
*/
package nutri
