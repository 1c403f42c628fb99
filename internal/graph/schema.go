package graph

// SchemaText is the GraphQL schema served at /graphql. Field resolvers live
// on the types in this package; sensitive fields enforce ownership and
// membership checks at resolution time.
const SchemaText = `
schema {
	query: Query
	mutation: Mutation
	subscription: Subscription
}

scalar Time

type Query {
	# Returns the acting user; id or email, when given, must match them.
	user(id: ID, email: String): User!
	# Returns a group the acting user is a member of.
	group(groupId: ID!): Group!
	# Messages sent to a group the acting user belongs to, or sent by the
	# acting user, or either when both filters are present.
	messages(groupId: ID, userId: ID): [Message!]!
	# A todo visible to the acting user (assignee or group member).
	todo(id: ID!): Todo!
}

type Mutation {
	signup(email: String!, password: String!, username: String): User!
	login(email: String!, password: String!): User!

	createMessage(text: String!, groupId: ID!): Message!

	createGroup(name: String!, userIds: [ID!]): Group!
	deleteGroup(id: ID!): Group!
	leaveGroup(id: ID!): ID!
	updateGroup(id: ID!, name: String!): Group!

	createTodo(text: String!, groupId: ID!, title: String, assigneeIds: [ID!], dueDate: Time): Todo!
	editTodo(id: ID!, title: String, text: String, assigneeIds: [ID!], dueDate: Time): Todo!
	markTodo(id: ID!): Todo!

	addFriend(userId: ID!): User!
}

type Subscription {
	# New messages in the given groups, excluding the subscriber's own.
	messageAdded(userId: ID!, groupIds: [ID!]!): Message!
	# Groups the subscriber was just added to by someone else.
	groupAdded(userId: ID!): Group!
}

type User {
	id: ID!
	email: String!
	username: String
	jwt: String
	messages: [Message!]!
	groups: [Group!]!
	friends: [User!]!
	todos: [Todo!]!
}

type Group {
	id: ID!
	name: String!
	users: [User!]!
	messages(first: Int, last: Int, before: String, after: String): MessageConnection!
	todos: [Todo!]!
}

type Message {
	id: ID!
	text: String!
	to: Group!
	from: User!
	createdAt: Time!
}

type Todo {
	id: ID!
	title: String
	text: String!
	group: Group!
	assignees: [User!]!
	dueDate: Time!
	completed: Boolean!
}

type MessageConnection {
	edges: [MessageEdge!]!
	pageInfo: PageInfo!
}

type MessageEdge {
	cursor: String!
	node: Message!
}

type PageInfo {
	hasNextPage: Boolean!
	hasPreviousPage: Boolean!
}
`
