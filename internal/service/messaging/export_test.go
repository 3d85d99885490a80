package messaging

var Truncate = truncate
