/*
Package domain contains the core domain models of the nutri conversation engine.

It defines the dialogue steps, the per-user Session with its typed Draft accumulator,
the closed vocabularies recognized in chat (categories, sex, activity level, goal) and
the request/response shapes exchanged with the remote delegates. This package is kept
pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Step: the single active position of a user in the dialogue.
  - Session: the persisted per-user snapshot (Step, Draft, Category, Version).
  - Draft: the fields collected so far during onboarding.
  - Profile / Targets: the finalized onboarding payload and the delegate's answer.
  - ItemEntry / LogResult: a food log request and the totals computed remotely.
*/
package domain
