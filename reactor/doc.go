// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides level-triggered readiness pollers behind api.Poller:
// epoll on Linux and poll(2) on the remaining unix platforms.
package reactor
