// Copyright (c) 2018-2020 The Decred developers
// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package fees provides methods for tracking and estimating fee rates for new
transactions to be mined into the network. Fee rate estimation has two main
goals:

- Ensuring transactions are mined within a target _confirmation range_
  (expressed in blocks);
- Attempting to minimize fees while maintaining the above restriction.

# Outline of the Algorithm

The algorithm follows the multi horizon fee estimation of bitcoin core v0.15+.

Stats building stage:

- For each transaction observed entering mempool at the current best height,
  record that height and its fee rate bucket
- For each mined transaction which was previously observed to enter the
  mempool, record how long (in blocks) it took to be mined and its fee rate
- For each transaction that leaves the mempool unmined, record that it failed
  to be mined for every confirmation period it waited through
- Whenever a new block is mined, decay older data to account for a dynamic fee
  environment

All of the above is kept by three independent horizons: a short one tracking
up to 12 blocks that quickly forgets old data, a medium one tracking up to 48
blocks in periods of 2 and a long one tracking up to 1008 blocks in periods of
24 with a half-life of about a week.

Estimation stage:

- Input a target confirmation range (how many blocks to wait for the tx to be
  mined)
- Starting at the highest fee bucket, group buckets until each group holds
  enough data and look for the cheapest group such that it and every group
  above it were mined within the target often enough
- Return the average fee rate of the bucket holding the median transaction of
  that group

A smart fee query combines the answers of the horizons at half the target, the
target and twice the target with increasingly strict success thresholds, and
returns the maximum.

# Bucket Ranges

Fee rates are grouped in buckets whose bounds grow geometrically, from 1000 to
10^7 satoshis per kB with a 5% spacing by default. A final bucket with an
infinite bound catches every rate above the highest finite one.

# Persistence

Only historical data is worth keeping across restarts. An Estimator produces a
Snapshot which can be restored into a fresh Estimator configured with the same
buckets and horizons. The feedb subpackage stores snapshots in a key/value
database.

# References

[1] Bitcoin Core fee estimation:
https://github.com/bitcoin/bitcoin/blob/master/src/policy/fees.cpp

[2] Introduction to the v0.15 algorithm:
https://gist.github.com/morcos/d3637f015bc4e607e1fd10d8351e9f41
*/
package fees
