package sqlassets

import _ "embed"

//go:embed schema/resource_pools.sql
var ResourcePoolsSQL string

//go:embed schema/resource_pool_seats.sql
var ResourcePoolSeatsSQL string

//go:embed schema/personal_accounts.sql
var PersonalAccountsSQL string

//go:embed schema/subscriptions.sql
var SubscriptionsSQL string
