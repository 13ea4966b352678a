/*
Package sandbox holds the hooks and run-wide toggles an algorithm registers, and the restricted
Process API those hooks are allowed to call.

A Sandbox is built in one of two ways:

  - Define: a Go function receives a Registrar and registers Go closures.
  - Load: algorithm text is evaluated by an embedded Lua 5.1 interpreter that sees only the
    registration functions plus the base, table, string and math libraries.

Either way the contract is the same: initializer, initiator and message receiver may each be
missing, registering twice keeps the last registration, and a failed evaluation yields no
Sandbox at all.

# Lua scripts

	randomizeTraversalTimes()
	addJitterToTraversalTimes(0.1)

	onInitiationDo(function(p)
	    p:setParentTo(p)
	    p:sendEachOutgoingChannel("<wave>")
	end)

	onReceivingMessageDo(function(p, message, q)
	    p.received = (p.received or 0) + 1
	end)

Process methods use the colon syntax. Any other field read or written on a process lives in
that process's private field bag.
*/
package sandbox
